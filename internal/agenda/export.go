package agenda

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"bookshelf/internal/models"
)

// ExportVersion is written into every export document
const ExportVersion = "1.0"

var supportedVersions = map[string]bool{
	ExportVersion: true,
}

var exportJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ExportDocument is the portable form of the agenda
type ExportDocument struct {
	Version    string         `json:"version"`
	ExportDate time.Time      `json:"exportDate"`
	Agenda     *Agenda        `json:"agenda"`
	Metadata   ExportMetadata `json:"metadata"`
}

// ExportMetadata summarizes an export
type ExportMetadata struct {
	TotalBooks int    `json:"totalBooks"`
	TotalGoals int    `json:"totalGoals"`
	ExportedBy string `json:"exportedBy"`
}

// ExportAgendaData serializes the whole agenda as an indented JSON document
func (e *Engine) ExportAgendaData() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := ExportDocument{
		Version:    ExportVersion,
		ExportDate: e.now(),
		Agenda:     e.agenda,
		Metadata: ExportMetadata{
			TotalBooks: len(e.agenda.ToReadList) + len(e.agenda.CurrentlyReading) + len(e.agenda.FinishedBooks),
			TotalGoals: len(e.agenda.ReadingGoals),
			ExportedBy: "bookshelf",
		},
	}

	data, err := exportJSON.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode agenda export: %w", err)
	}
	return string(data), nil
}

// ImportAgendaData replaces the agenda with an exported document.
// Documents without a recognized version or an agenda are rejected and the
// current state is left untouched.
func (e *Engine) ImportAgendaData(ctx context.Context, data string) bool {
	var doc struct {
		Version string  `json:"version"`
		Agenda  *Agenda `json:"agenda"`
	}
	if err := exportJSON.Unmarshal([]byte(data), &doc); err != nil {
		e.logger.Warn("Rejected agenda import: malformed document", zap.Error(err))
		return false
	}
	if !supportedVersions[doc.Version] {
		e.logger.Warn("Rejected agenda import: unsupported version", zap.String("version", doc.Version))
		return false
	}
	if doc.Agenda == nil {
		e.logger.Warn("Rejected agenda import: missing agenda")
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.agenda = e.assignMissingIDs(mergeIntoDefaults(doc.Agenda))
	e.checkGoals()
	e.recomputeStats(e.now())
	e.persist(ctx)

	e.logger.Info("Agenda imported",
		zap.Int("to_read", len(e.agenda.ToReadList)),
		zap.Int("reading", len(e.agenda.CurrentlyReading)),
		zap.Int("finished", len(e.agenda.FinishedBooks)),
	)
	return true
}

// mergeIntoDefaults fills missing lists and drops nil entries and items whose
// id already appeared in an earlier list. Pages are clamped to the page count.
func mergeIntoDefaults(in *Agenda) *Agenda {
	out := defaultAgenda()
	out.ReadingStats = in.ReadingStats
	if out.ReadingStats.FavoriteGenres == nil {
		out.ReadingStats.FavoriteGenres = []string{}
	}

	seen := make(map[string]bool)
	keep := func(list []*models.AgendaItem) []*models.AgendaItem {
		kept := []*models.AgendaItem{}
		for _, item := range list {
			if item == nil {
				continue
			}
			if item.ItemID != "" {
				if seen[item.ItemID] {
					continue
				}
				seen[item.ItemID] = true
			}
			item.CurrentPage = clampPage(item.CurrentPage, item.PageCount)
			kept = append(kept, item)
		}
		return kept
	}
	out.ToReadList = keep(in.ToReadList)
	out.CurrentlyReading = keep(in.CurrentlyReading)
	out.FinishedBooks = keep(in.FinishedBooks)

	for _, g := range in.ReadingGoals {
		if g != nil {
			out.ReadingGoals = append(out.ReadingGoals, g)
		}
	}
	return out
}

// assignMissingIDs gives imported items and goals without an id a fresh one
func (e *Engine) assignMissingIDs(a *Agenda) *Agenda {
	for _, list := range [][]*models.AgendaItem{a.ToReadList, a.CurrentlyReading, a.FinishedBooks} {
		for _, item := range list {
			if item.ItemID == "" {
				item.ItemID = e.newID()
			}
		}
	}
	for _, g := range a.ReadingGoals {
		if g.GoalID == "" {
			g.GoalID = e.newID()
		}
	}
	return a
}
