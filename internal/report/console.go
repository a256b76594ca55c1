package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kursadbilgin/hme-generator/internal/domain"
)

const ruleWidth = 60

var _ Reporter = (*Console)(nil)

// Console renders human-readable progress, including a live cooldown
// countdown, on a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	inCountdown bool

	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	accent  lipgloss.Style
	faint   lipgloss.Style
	success lipgloss.Style
}

func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		now:     time.Now,
		ok:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		err:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		warn:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		accent:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		faint:   r.NewStyle().Faint(true),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
}

func (c *Console) RunStarted(_ string, requested, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rule()
	c.logf("Generating %d email(s)...", requested)
	c.rule()
}

func (c *Console) BatchStarted(plan domain.BatchPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logf("%s - Generating %d email(s)...",
		c.accent.Render(fmt.Sprintf("Batch %d/%d", plan.Index+1, plan.Total)), plan.Size)
}

func (c *Console) UnitProgress(stage domain.UnitStage, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch stage {
	case domain.StageGenerate:
		c.logf("[50%%] %q - Successfully generated", address)
	case domain.StageReserve:
		c.logf("[100%%] %q - Successfully reserved", address)
	}
}

func (c *Console) UnitFailed(stage domain.UnitStage, address string, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tag := c.err.Render("[ERR]")
	if address == "" {
		c.logf("%s - Failed to %s email. Reason: %s", tag, stage, reason)
		return
	}
	c.logf("%s %q - Failed to %s email. Reason: %s", tag, address, stage, reason)
}

func (c *Console) BatchRateLimited(_ domain.BatchPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logf("%s All emails in this batch were rate limited.", c.err.Render("✗"))
}

func (c *Console) BatchCompleted(plan domain.BatchPlan, _, collected, requested int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if collected >= requested {
		return
	}
	c.logf("%s Batch %d complete. %d/%d emails generated so far.",
		c.ok.Render("✓"), plan.Index+1, collected, requested)
}

func (c *Console) CooldownStarted(reason domain.CooldownReason, d time.Duration) {
	c.CooldownTick(reason, d)
}

func (c *Console) CooldownTick(_ domain.CooldownReason, remaining time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inCountdown = true
	fmt.Fprintf(c.out, "\r\x1b[2K%s%s%s",
		c.warn.Render("⏳ Rate limit reached. Waiting "),
		c.accent.Render(FormatCountdown(remaining)),
		c.warn.Render(" before next batch..."),
	)
}

func (c *Console) CooldownFinished(reason domain.CooldownReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := "Continuing with next batch..."
	if reason == domain.CooldownRateLimited {
		next = "Retrying batch..."
	}
	c.logf("%s Wait complete. %s", c.ok.Render("✓"), next)
	c.rule()
}

func (c *Console) RunFinished(summary domain.RunSummary, savedTo string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if summary.Interrupted {
		c.logf("%s Interrupted. %d of %d email(s) were generated before stopping.",
			c.warn.Render("!"), summary.Generated(), summary.Requested)
	}
	if summary.Generated() == 0 {
		return
	}

	c.rule()
	c.logf("⭐ All emails have been saved to the %q file", savedTo)
	c.logf("%s Successfully generated %s email(s)",
		c.ok.Render("All done!"), c.success.Render(fmt.Sprint(summary.Generated())))
	if summary.RunID != "" {
		c.logf("%s", c.faint.Render("Run ID: "+summary.RunID))
	}
}

// logf prints one timestamped line. Callers hold c.mu.
func (c *Console) logf(format string, args ...any) {
	c.endCountdown()
	fmt.Fprintf(c.out, "%s %s\n", c.faint.Render(c.now().Format("[15:04:05]")), fmt.Sprintf(format, args...))
}

func (c *Console) rule() {
	c.endCountdown()
	fmt.Fprintln(c.out, c.faint.Render(strings.Repeat("─", ruleWidth)))
}

func (c *Console) endCountdown() {
	if c.inCountdown {
		fmt.Fprintln(c.out)
		c.inCountdown = false
	}
}

// FormatCountdown renders a remaining duration as MM:SS, rounding up so the
// display never shows 00:00 while time is left.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int((remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
