package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/kursadbilgin/hme-generator/internal/domain"
)

// RenderAddresses writes the address list as a bordered table.
func RenderAddresses(out io.Writer, addresses []domain.Address) error {
	r := lipgloss.NewRenderer(out)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(addresses))
	for _, a := range addresses {
		rows = append(rows, []string{
			a.Label,
			a.Hme,
			fmt.Sprintf("%s (%s)", a.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(a.CreatedAt)),
			strconv.FormatBool(a.IsActive),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers("Label", "Hide my email", "Created Date Time", "IsActive").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	_, err := fmt.Fprintln(out, t.Render())
	return err
}

// RenderBatches writes the recorded batches of one run.
func RenderBatches(out io.Writer, batches []domain.PersistedBatch) error {
	r := lipgloss.NewRenderer(out)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			strconv.Itoa(b.Index + 1),
			string(b.Status),
			fmt.Sprintf("%d/%d", len(b.Addresses), b.Attempted),
			strings.Join(b.Addresses, "\n"),
			humanize.Time(b.CreatedAt),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers("Batch", "Status", "Succeeded", "Addresses", "Saved").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	_, err := fmt.Fprintln(out, t.Render())
	return err
}
