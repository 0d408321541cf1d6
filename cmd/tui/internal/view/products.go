package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

const lowStock = 5

type ProductsModel struct {
	CommonModel
	svc *purchase.Service

	table   table.Model
	loading bool
	err     error
}

func NewProductsModel(svc *purchase.Service) ProductsModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 6},
			{Title: "SKU", Width: 14},
			{Title: "Name", Width: 32},
			{Title: "Price", Width: 12},
			{Title: "Stock", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ProductsModel{svc: svc, table: t, loading: true}
}

func (m ProductsModel) Title() string     { return "Stock" }
func (m ProductsModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m ProductsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ProductsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stockLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.refreshTable(msg.products)
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ProductsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading stock...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)
}

func (m *ProductsModel) refreshTable(products []*purchase.Product) {
	rows := make([]table.Row, 0, len(products))
	for _, p := range products {
		stock := strconv.Itoa(p.Stock)
		if p.Stock < lowStock {
			stock += " !"
		}

		rows = append(rows, table.Row{
			strconv.FormatInt(p.ID, 10),
			p.SKU,
			p.Name,
			FormatAmount(p.Price),
			stock,
		})
	}

	m.table.SetRows(rows)
}

type stockLoadedMsg struct {
	products []*purchase.Product
	err      error
}

func (m ProductsModel) loadCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		products, err := svc.Products(ctx)

		return stockLoadedMsg{products: products, err: err}
	}
}
