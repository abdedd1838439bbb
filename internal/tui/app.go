package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relayhub/relay-gateway/internal/auth"
	"github.com/relayhub/relay-gateway/internal/usage"
)

const pollInterval = 5 * time.Second

type summaryMsg struct {
	summary *usage.Summary
	err     error
}

type tickMsg time.Time

// App is the gatewaytop dashboard model. It polls the gateway's usage API
// and renders the day's totals, per-provider spend, and the live rate
// counter.
type App struct {
	baseURL string
	secret  string

	width, height int
	summary       *usage.Summary
	err           error
	lastFetch     time.Time
	spin          spinner.Model
	keys          KeyMap
	client        *http.Client
}

func NewApp(baseURL, secret string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = TitleStyle

	return &App{
		baseURL: baseURL,
		secret:  secret,
		spin:    sp,
		keys:    DefaultKeyMap,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.fetchCmd())
}

func (a *App) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequest(http.MethodGet, a.baseURL+"/api/v1/usage?days=7", nil)
		if err != nil {
			return summaryMsg{err: err}
		}
		if a.secret != "" {
			req.Header.Set("Authorization", "Bearer "+a.secret)
		} else {
			req.Header.Set(auth.HeaderService, "gatewaytop")
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return summaryMsg{err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return summaryMsg{err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
		}

		var s usage.Summary
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return summaryMsg{err: err}
		}
		return summaryMsg{summary: &s}
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Refresh):
			return a, a.fetchCmd()
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case summaryMsg:
		a.summary = msg.summary
		a.err = msg.err
		a.lastFetch = time.Now()
		return a, scheduleTick()
	case tickMsg:
		return a, a.fetchCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) View() string {
	if a.width == 0 {
		return "Initializing..."
	}

	bar := StatusBarStyle.Width(a.width).Render(
		fmt.Sprintf("relay-gateway ops | %s | last update %s | q quit, r refresh",
			a.baseURL, a.lastUpdate()))

	var body string
	switch {
	case a.err != nil:
		body = PanelStyle.Render(ErrStyle.Render("fetch failed: " + a.err.Error()))
	case a.summary == nil:
		body = PanelStyle.Render(a.spin.View() + " loading usage summary")
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top, a.totalsPanel(), a.providersPanel())
	}

	return lipgloss.JoinVertical(lipgloss.Left, bar, body)
}

func (a *App) lastUpdate() string {
	if a.lastFetch.IsZero() {
		return "never"
	}
	return a.lastFetch.Format("15:04:05")
}

func (a *App) totalsPanel() string {
	t := a.summary.Totals
	rl := a.summary.RateLimit

	rate := fmt.Sprintf("%d/%d this hour", rl.Current, rl.Limit)
	if rl.Remaining == -1 {
		rate = "unlimited"
	} else if rl.Remaining == 0 {
		rate = ErrStyle.Render(rate + " (exhausted)")
	} else if rl.Remaining < rl.Limit/10 {
		rate = WarnStyle.Render(rate)
	}

	content := fmt.Sprintf("%s\n\nRequests: %d\nCost: $%.4f\nTokens in: %d\nTokens out: %d\nRate: %s",
		TitleStyle.Render(fmt.Sprintf("Last %d days", a.summary.Days)),
		t.Requests, t.Cost, t.InputTokens, t.OutputTokens, rate)

	return PanelStyle.Render(content)
}

func (a *App) providersPanel() string {
	byProvider := map[string]*usage.ProviderUsage{}
	for _, day := range a.summary.Daily {
		for id, p := range day.ByProvider {
			agg, ok := byProvider[id]
			if !ok {
				agg = &usage.ProviderUsage{}
				byProvider[id] = agg
			}
			agg.Requests += p.Requests
			agg.Cost += p.Cost
		}
	}

	ids := make([]string, 0, len(byProvider))
	for id := range byProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	content := TitleStyle.Render("By provider") + "\n"
	if len(ids) == 0 {
		content += "\nno traffic yet"
	}
	for _, id := range ids {
		p := byProvider[id]
		content += fmt.Sprintf("\n%-12s %5d req  $%.4f", id, p.Requests, p.Cost)
	}

	return PanelStyle.Render(content)
}
