package main

import (
	"flag"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/stockroom/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/stockroom/internal/config"
	"github.com/MrJamesThe3rd/stockroom/internal/database"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
	purchaseStore "github.com/MrJamesThe3rd/stockroom/internal/purchase/store"
)

type model struct {
	purchaseService *purchase.Service

	currentView View

	purchasesView view.PurchasesModel
	orderView     view.OrderModel
	productsView  view.ProductsModel
}

type View int

const (
	ViewMenu      View = 0
	ViewPurchases View = 1
	ViewOrder     View = 2
	ViewProducts  View = 3
)

func initialModel(demo bool) model {
	if demo {
		return newModel(demoService())
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	return newModel(purchase.NewService(purchaseStore.New(db, cfg.DB.LockTimeout)))
}

func newModel(svc *purchase.Service) model {
	return model{
		purchaseService: svc,
		currentView:     ViewMenu,
		purchasesView:   view.NewPurchasesModel(svc),
		orderView:       view.NewOrderModel(svc),
		productsView:    view.NewProductsModel(svc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewPurchases
				m.purchasesView = view.NewPurchasesModel(m.purchaseService)

				return m, m.purchasesView.Init()
			case "2":
				m.currentView = ViewOrder
				m.orderView = view.NewOrderModel(m.purchaseService)

				return m, m.orderView.Init()
			case "3":
				m.currentView = ViewProducts
				m.productsView = view.NewProductsModel(m.purchaseService)

				return m, m.productsView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewPurchases:
		var newModel tea.Model
		newModel, cmd = m.purchasesView.Update(msg)
		m.purchasesView = newModel.(view.PurchasesModel)
	case ViewOrder:
		var newModel tea.Model
		newModel, cmd = m.orderView.Update(msg)
		m.orderView = newModel.(view.OrderModel)
	case ViewProducts:
		var newModel tea.Model
		newModel, cmd = m.productsView.Update(msg)
		m.productsView = newModel.(view.ProductsModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Stockroom\n\n" +
				"1. Purchases\n" +
				"2. New Purchase\n" +
				"3. Stock\n\n" +
				"q. Quit",
		)
	case ViewPurchases:
		return withHelp(m.purchasesView)
	case ViewOrder:
		return withHelp(m.orderView)
	case ViewProducts:
		return withHelp(m.productsView)
	}

	return "Unknown View"
}

func withHelp(v view.View) string {
	return v.View() + "\n" + lipgloss.NewStyle().Faint(true).PaddingLeft(2).Render(v.ShortHelp())
}

func main() {
	demo := flag.Bool("demo", false, "run on an in-memory sample catalog instead of the database")
	flag.Parse()

	p := tea.NewProgram(initialModel(*demo), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
