package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

type purchasesState int

const (
	purchasesStateList purchasesState = iota
	purchasesStateDetail
	purchasesStateConfirm
)

// purchaseItem wraps a purchase to implement list.Item.
type purchaseItem struct {
	p *purchase.Purchase
}

func (i purchaseItem) Title() string {
	return fmt.Sprintf("#%-5d %s  %12s  %s", i.p.ID, i.p.InvoiceNo, FormatAmount(i.p.Total), StatusBadge(i.p.Status))
}

func (i purchaseItem) Description() string {
	if i.p.PaidAt != nil {
		return fmt.Sprintf("Created %s, paid %s", FormatDateTime(i.p.CreatedAt), FormatDateTime(*i.p.PaidAt))
	}

	return "Created " + FormatDateTime(i.p.CreatedAt)
}

func (i purchaseItem) FilterValue() string {
	return i.p.InvoiceNo
}

// confirmation is heap allocated so the huh field keeps pointing at it
// while the model is copied between updates.
type confirmation struct {
	target purchase.Status
	ok     bool
}

type PurchasesModel struct {
	CommonModel
	svc *purchase.Service

	state   purchasesState
	list    list.Model
	lines   table.Model
	spinner spinner.Model
	form    *huh.Form
	confirm *confirmation

	selected *purchase.Purchase
	loading  bool
	status   string
}

func NewPurchasesModel(svc *purchase.Service) PurchasesModel {
	l := list.New([]list.Item{}, purchaseItemDelegate{}, 0, 0)
	l.Title = "Purchases"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "SKU", Width: 12},
			{Title: "Product", Width: 28},
			{Title: "Qty", Width: 6},
			{Title: "Price", Width: 12},
			{Title: "Subtotal", Width: 14},
		}),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return PurchasesModel{
		svc:     svc,
		list:    l,
		lines:   t,
		spinner: sp,
		loading: true,
	}
}

func (m PurchasesModel) Title() string { return "Purchases" }

func (m PurchasesModel) ShortHelp() string {
	switch m.state {
	case purchasesStateList:
		return "Esc: back | Enter: open | /: filter | r: refresh"
	case purchasesStateDetail:
		return "Esc: back to list | c: cancel | p: pay"
	case purchasesStateConfirm:
		return "Esc: abort | Enter: confirm"
	}

	return ""
}

func (m PurchasesModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m PurchasesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPurchasesMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.refreshListItems(msg.purchases)

		if len(msg.purchases) == 0 {
			m.status = "No purchases yet."
		}

		return m, nil

	case loadDetailMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			m.state = purchasesStateList

			return m, nil
		}

		m.showDetail(msg.p)

		return m, nil

	case transitionResultMsg:
		m.loading = false
		m.state = purchasesStateDetail

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Purchase %s is now %s.", msg.p.InvoiceNo, msg.p.Status)

		return m, tea.Batch(m.detailCmd(msg.p.ID), m.loadCmd())

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)

		return m, nil
	}

	switch m.state {
	case purchasesStateList:
		return m.updateList(msg)
	case purchasesStateDetail:
		return m.updateDetail(msg)
	case purchasesStateConfirm:
		return m.updateConfirm(msg)
	}

	return m, nil
}

func (m PurchasesModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		case "enter":
			item, ok := m.list.SelectedItem().(purchaseItem)
			if !ok {
				return m, nil
			}

			m.loading = true
			m.status = ""

			return m, tea.Batch(m.spinner.Tick, m.detailCmd(item.p.ID))
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m PurchasesModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		m.state = purchasesStateList
		m.selected = nil
		m.status = ""

		return m, nil
	case "c":
		return m.askTransition(purchase.StatusCancelled)
	case "p":
		return m.askTransition(purchase.StatusPaid)
	}

	var cmd tea.Cmd
	m.lines, cmd = m.lines.Update(msg)

	return m, cmd
}

func (m PurchasesModel) askTransition(target purchase.Status) (tea.Model, tea.Cmd) {
	if m.selected == nil {
		return m, nil
	}

	if !m.selected.Status.CanTransitionTo(target) {
		m.status = fmt.Sprintf("A %s purchase cannot become %s.", m.selected.Status, target)
		return m, nil
	}

	title := fmt.Sprintf("Mark %s as paid?", m.selected.InvoiceNo)
	if target == purchase.StatusCancelled {
		title = fmt.Sprintf("Cancel %s and return its stock?", m.selected.InvoiceNo)
	}

	m.confirm = &confirmation{target: target}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&m.confirm.ok),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = purchasesStateConfirm

	return m, m.form.Init()
}

func (m PurchasesModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = purchasesStateDetail
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.form = nil
	m.state = purchasesStateDetail

	if !m.confirm.ok {
		return m, nil
	}

	m.loading = true

	return m, tea.Batch(m.spinner.Tick, m.transitionCmd(m.selected.ID, m.confirm.target))
}

func (m PurchasesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render(m.spinner.View() + " Loading purchases...")
	}

	statusLine := ""
	if m.status != "" {
		statusLine = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n"
	}

	switch m.state {
	case purchasesStateList:
		return lipgloss.NewStyle().Padding(1).Render(statusLine + m.list.View())

	case purchasesStateDetail:
		return lipgloss.NewStyle().Padding(1).Render(statusLine + m.detailView())

	case purchasesStateConfirm:
		if m.form == nil {
			return ""
		}

		return lipgloss.NewStyle().Padding(1).Render(m.detailView() + "\n\n" + m.form.View())
	}

	return ""
}

func (m PurchasesModel) detailView() string {
	if m.selected == nil {
		return ""
	}

	p := m.selected

	paid := "-"
	if p.PaidAt != nil {
		paid = FormatDateTime(*p.PaidAt)
	}

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(fmt.Sprintf(
			"Invoice: %s  |  Status: %s\nCreated: %s  |  Paid: %s\nTotal: %s",
			p.InvoiceNo, StatusBadge(p.Status), FormatDateTime(p.CreatedAt), paid, FormatAmount(p.Total),
		))

	var actions []string
	if p.Status.CanTransitionTo(purchase.StatusCancelled) {
		actions = append(actions, "[c] cancel")
	}

	if p.Status.CanTransitionTo(purchase.StatusPaid) {
		actions = append(actions, "[p] pay")
	}

	footer := lipgloss.NewStyle().Faint(true).Render("No actions available.")
	if len(actions) > 0 {
		footer = activeStyle(strings.Join(actions, "  "))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.lines.View(), footer)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *PurchasesModel) refreshListItems(ps []*purchase.Purchase) {
	items := make([]list.Item, len(ps))
	for i, p := range ps {
		items[i] = purchaseItem{p: p}
	}

	m.list.SetItems(items)
}

func (m *PurchasesModel) showDetail(p *purchase.Purchase) {
	rows := make([]table.Row, 0, len(p.Lines))
	for _, l := range p.Lines {
		rows = append(rows, table.Row{
			l.SKU,
			l.Name,
			strconv.Itoa(l.Qty),
			FormatAmount(l.Price),
			FormatAmount(l.Subtotal),
		})
	}

	m.selected = p
	m.lines.SetRows(rows)
	m.state = purchasesStateDetail
}

// Messages

type loadPurchasesMsg struct {
	purchases []*purchase.Purchase
	err       error
}

func (m PurchasesModel) loadCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		ps, err := svc.List(ctx)

		return loadPurchasesMsg{purchases: ps, err: err}
	}
}

type loadDetailMsg struct {
	p   *purchase.Purchase
	err error
}

func (m PurchasesModel) detailCmd(id int64) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		p, err := svc.Get(ctx, id)

		return loadDetailMsg{p: p, err: err}
	}
}

type transitionResultMsg struct {
	p   *purchase.Purchase
	err error
}

func (m PurchasesModel) transitionCmd(id int64, target purchase.Status) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var (
			p   *purchase.Purchase
			err error
		)

		switch target {
		case purchase.StatusCancelled:
			p, err = svc.Cancel(ctx, id)
		case purchase.StatusPaid:
			p, err = svc.Pay(ctx, id)
		default:
			err = fmt.Errorf("unsupported target status %s", target)
		}

		return transitionResultMsg{p: p, err: err}
	}
}

// purchaseItemDelegate renders purchases in the list.
type purchaseItemDelegate struct{}

func (d purchaseItemDelegate) Height() int                             { return 2 }
func (d purchaseItemDelegate) Spacing() int                            { return 0 }
func (d purchaseItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d purchaseItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(purchaseItem)
	if !ok {
		return
	}

	title := i.Title()
	if index == m.Index() {
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("> " + title)
	}

	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "    %s\n", lipgloss.NewStyle().Faint(true).Render(i.Description()))
}
