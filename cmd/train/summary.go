// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tomtom215/papertrail/internal/recommend"
	"github.com/tomtom215/papertrail/internal/recommend/ncf"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	styleStep  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6EC4F4"))
	styleOK    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6EF4A1"))
	styleError = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F45E6E"))
	styleLabel = lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("#A0A0A0"))
	styleBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

func renderHeader(t *recommend.TrainingConfig) string {
	return styleTitle.Render("Training NCF model") + "\n" + renderRows([][2]string{
		{"epochs", fmt.Sprint(t.Epochs)},
		{"batch size", fmt.Sprint(t.BatchSize)},
		{"embedding dim", fmt.Sprint(t.EmbeddingDim)},
		{"learning rate", fmt.Sprintf("%g", t.LearningRate)},
		{"negative samples", fmt.Sprint(t.NegativeRatio)},
	})
}

func renderStep(step, total int, name string) string {
	return styleStep.Render(fmt.Sprintf("[%d/%d] %s", step, total, name))
}

func renderEpoch(s ncf.EpochStats, epochs int) string {
	return fmt.Sprintf("  epoch %3d/%d  train=%.4f  val=%.4f  lr=%.2e",
		s.Epoch, epochs, s.TrainLoss, s.ValLoss, s.LearningRate)
}

func renderRows(rows [][2]string) string {
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(styleLabel.Render(r[0]))
		b.WriteString(r[1])
	}
	return b.String()
}

// renderSummary formats a finished run.
func renderSummary(r *recommend.TrainingReport) string {
	rows := [][2]string{
		{"version", r.Version},
		{"interactions", fmt.Sprint(r.NumInteractions)},
		{"students / papers", fmt.Sprintf("%d / %d", r.NumUsers, r.NumItems)},
		{"positives / negatives", fmt.Sprintf("%d / %d", r.NumPositives, r.NumNegatives)},
		{"train / val / test", fmt.Sprintf("%d / %d / %d", r.TrainSize, r.ValSize, r.TestSize)},
	}
	if r.History != nil {
		rows = append(rows,
			[2]string{"epochs run", fmt.Sprintf("%d (best %d)", len(r.History.Epochs), r.History.BestEpoch)},
			[2]string{"best val loss", fmt.Sprintf("%.4f", r.History.BestValLoss)},
		)
	}
	rows = append(rows,
		[2]string{"test MSE / RMSE", fmt.Sprintf("%.4f / %.4f", r.Metrics.MSE, r.Metrics.RMSE)},
		[2]string{"precision / recall", fmt.Sprintf("%.4f / %.4f", r.Metrics.Precision, r.Metrics.Recall)},
		[2]string{"model", r.ModelPath},
		[2]string{"duration", r.Duration.Round(time.Millisecond).String()},
	)
	if len(r.Pruned) > 0 {
		rows = append(rows, [2]string{"pruned", strings.Join(r.Pruned, ", ")})
	}
	return styleBox.Render(styleOK.Render("Training complete") + "\n" + renderRows(rows))
}
