package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

type orderState int

const (
	orderStateLoading orderState = iota
	orderStateLine
	orderStateConfirm
	orderStateSubmitting
	orderStateDone
)

// orderDraft holds the form bindings and the lines entered so far. It lives
// on the heap so huh fields keep valid pointers across model copies.
type orderDraft struct {
	productID int64
	qty       string
	more      bool
	submit    bool

	lines []purchase.LineRequest
}

type OrderModel struct {
	CommonModel
	svc *purchase.Service

	state    orderState
	spinner  spinner.Model
	form     *huh.Form
	draft    *orderDraft
	products map[int64]*purchase.Product
	options  []huh.Option[int64]

	created *purchase.Purchase
	status  string
}

func NewOrderModel(svc *purchase.Service) OrderModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return OrderModel{
		svc:     svc,
		spinner: sp,
		draft:   &orderDraft{},
	}
}

func (m OrderModel) Title() string { return "New Purchase" }

func (m OrderModel) ShortHelp() string {
	switch m.state {
	case orderStateLine, orderStateConfirm:
		return "Esc: discard order | Enter/Tab: navigate form"
	case orderStateDone:
		return "Esc: back | n: new order"
	}

	return ""
}

func (m OrderModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadProductsCmd())
}

func (m OrderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadProductsMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			m.state = orderStateDone

			return m, nil
		}

		m.setProducts(msg.products)

		if len(m.options) == 0 {
			m.status = "No products in stock."
			m.state = orderStateDone

			return m, nil
		}

		return m.startLine()

	case createResultMsg:
		m.state = orderStateDone

		if msg.err != nil {
			m.status = fmt.Sprintf("Purchase not created: %v", msg.err)
			return m, nil
		}

		m.created = msg.p
		m.status = ""

		return m, nil

	case spinner.TickMsg:
		if m.state != orderStateLoading && m.state != orderStateSubmitting {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		if m.state == orderStateSubmitting {
			return m, nil
		}

		return m, Back
	}

	switch m.state {
	case orderStateLine:
		return m.updateLine(msg)
	case orderStateConfirm:
		return m.updateConfirm(msg)
	case orderStateDone:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "n" {
			fresh := NewOrderModel(m.svc)
			return fresh, fresh.Init()
		}
	}

	return m, nil
}

func (m *OrderModel) setProducts(products []*purchase.Product) {
	m.products = make(map[int64]*purchase.Product, len(products))
	m.options = m.options[:0]

	for _, p := range products {
		m.products[p.ID] = p

		if p.Stock <= 0 {
			continue
		}

		label := fmt.Sprintf("%s  %s  @ %s  (stock %d)", p.SKU, p.Name, FormatAmount(p.Price), p.Stock)
		m.options = append(m.options, huh.NewOption(label, p.ID))
	}
}

func (m OrderModel) startLine() (tea.Model, tea.Cmd) {
	d := m.draft
	d.productID = m.options[0].Value
	d.qty = "1"
	d.more = false

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Key("product").
				Title("Product").
				Options(m.options...).
				Value(&d.productID),

			huh.NewInput().
				Key("qty").
				Title("Quantity").
				Value(&d.qty).
				Validate(m.validateQty),

			huh.NewConfirm().
				Key("more").
				Title("Add another line?").
				Affirmative("Yes").
				Negative("No").
				Value(&d.more),
		),
	).WithWidth(60).WithShowHelp(false)

	m.state = orderStateLine

	return m, m.form.Init()
}

// validateQty checks the quantity against stock minus what earlier lines of
// this draft already claim. The service re-checks under lock on submit.
func (m OrderModel) validateQty(s string) error {
	qty, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || qty <= 0 {
		return errors.New("enter a positive whole number")
	}

	p, ok := m.products[m.draft.productID]
	if !ok {
		return errors.New("pick a product")
	}

	claimed := 0
	for _, l := range m.draft.lines {
		if l.ProductID == p.ID {
			claimed += l.Qty
		}
	}

	if qty+claimed > p.Stock {
		return fmt.Errorf("only %d left", p.Stock-claimed)
	}

	return nil
}

func (m OrderModel) updateLine(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	qty, _ := strconv.Atoi(strings.TrimSpace(m.draft.qty))
	m.draft.lines = append(m.draft.lines, purchase.LineRequest{ProductID: m.draft.productID, Qty: qty})

	if m.draft.more {
		return m.startLine()
	}

	return m.startConfirm()
}

func (m OrderModel) startConfirm() (tea.Model, tea.Cmd) {
	m.draft.submit = false

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("submit").
				Title(fmt.Sprintf("Create purchase with %d line(s), total %s?", len(m.draft.lines), FormatAmount(m.estimate()))).
				Affirmative("Create").
				Negative("Discard").
				Value(&m.draft.submit),
		),
	).WithWidth(60).WithShowHelp(false)

	m.state = orderStateConfirm

	return m, m.form.Init()
}

func (m OrderModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.draft.submit {
		return m, Back
	}

	m.state = orderStateSubmitting

	return m, tea.Batch(m.spinner.Tick, m.createCmd(m.draft.lines))
}

// estimate prices the draft from the catalog snapshot; the service computes
// the recorded total.
func (m OrderModel) estimate() int64 {
	var total int64

	for _, l := range m.draft.lines {
		if p, ok := m.products[l.ProductID]; ok {
			total += p.Price * int64(l.Qty)
		}
	}

	return total
}

func (m OrderModel) View() string {
	switch m.state {
	case orderStateLoading:
		return lipgloss.NewStyle().Padding(2).Render(m.spinner.View() + " Loading products...")

	case orderStateSubmitting:
		return lipgloss.NewStyle().Padding(2).Render(m.spinner.View() + " Creating purchase...")

	case orderStateLine, orderStateConfirm:
		if m.form == nil {
			return ""
		}

		return lipgloss.NewStyle().Padding(1).Render(m.draftView() + "\n" + m.form.View())

	case orderStateDone:
		if m.created == nil {
			return lipgloss.NewStyle().Padding(2).Render(m.status)
		}

		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf(
			"Created %s with %d line(s), total %s.\n\nn: new order | Esc: back",
			activeStyle(m.created.InvoiceNo), len(m.created.Lines), FormatAmount(m.created.Total),
		))
	}

	return ""
}

func (m OrderModel) draftView() string {
	if len(m.draft.lines) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("No lines yet.")
	}

	var b strings.Builder

	for _, l := range m.draft.lines {
		p := m.products[l.ProductID]
		fmt.Fprintf(&b, "%-12s %-28s x%d\n", p.SKU, p.Name, l.Qty)
	}

	fmt.Fprintf(&b, "Estimated total: %s", FormatAmount(m.estimate()))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(b.String())
}

// Messages

type loadProductsMsg struct {
	products []*purchase.Product
	err      error
}

func (m OrderModel) loadProductsCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		products, err := svc.Products(ctx)

		return loadProductsMsg{products: products, err: err}
	}
}

type createResultMsg struct {
	p   *purchase.Purchase
	err error
}

func (m OrderModel) createCmd(lines []purchase.LineRequest) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		p, err := svc.Create(ctx, lines)

		return createResultMsg{p: p, err: err}
	}
}
