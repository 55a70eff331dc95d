package ui

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bnema/wayseat/internal/trace"
)

func cellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
}

func headerCellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
}

// EventTable renders events as a bordered table, one row per event.
func EventTable(events []trace.Event) string {
	rows := make([][]string, len(events))
	for i, ev := range events {
		rows[i] = []string{
			strconv.FormatUint(ev.Seq, 10),
			ev.ClientName,
			fmt.Sprintf("%s@%d", ev.Interface, ev.Object),
			ev.Name,
			ev.FormatArgs(),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCellStyle()
			case col == 0:
				return cellStyle().Foreground(ColorSubtle)
			case col == 2:
				return InterfaceStyle(events[row].Interface).Padding(0, 1)
			case col == 3:
				return cellStyle().Bold(true)
			default:
				return cellStyle()
			}
		}).
		Headers("SEQ", "CLIENT", "OBJECT", "EVENT", "ARGS").
		Rows(rows...)

	return t.String()
}

// SummaryTable counts events per client and interface.
func SummaryTable(events []trace.Event) string {
	type key struct{ client, iface string }
	counts := make(map[key]int)
	for _, ev := range events {
		counts[key{ev.ClientName, ev.Interface}]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].client != keys[j].client {
			return keys[i].client < keys[j].client
		}
		return keys[i].iface < keys[j].iface
	})

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k.client, k.iface, strconv.Itoa(counts[k])}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCellStyle()
			case col == 1:
				return InterfaceStyle(keys[row].iface).Padding(0, 1)
			case col == 2:
				return cellStyle().Foreground(ColorInfo).Bold(true)
			default:
				return cellStyle()
			}
		}).
		Headers("CLIENT", "INTERFACE", "EVENTS").
		Rows(rows...)

	return t.String()
}
