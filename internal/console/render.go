package console

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/eventlog"
	"github.com/koscakluka/ema-quiz/core/quiz"
	"github.com/koscakluka/ema-quiz/core/realtime"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

var levelGlyphs = []rune("▁▂▃▄▅▆▇█")

func renderItem(item conversation.Item, width int) string {
	var label, body string
	switch {
	case item.Type == conversation.ItemFunctionCall:
		label = toolStyle.Render("tool")
		name, args := item.Name, item.Arguments
		if item.Formatted.Tool != nil {
			name, args = item.Formatted.Tool.Name, item.Formatted.Tool.Arguments
		}
		body = fmt.Sprintf("%s(%s)", name, args)
	case item.Type == conversation.ItemFunctionCallOutput:
		label = toolStyle.Render("result")
		body = item.Formatted.Output
	case item.Role == conversation.RoleUser:
		label = userStyle.Render("you")
		body = itemText(item)
	default:
		label = agentStyle.Render("agent")
		body = itemText(item)
	}

	if item.Status == conversation.StatusInProgress {
		body += mutedStyle.Render(" …")
	}
	rendered := label + " " + wordwrap.String(body, max(width-len("result "), 10))
	if item.Formatted.File != "" {
		rendered += "\n" + mutedStyle.Render("  ♪ "+item.Formatted.File)
	}
	return rendered
}

func itemText(item conversation.Item) string {
	switch {
	case item.Formatted.Transcript != "":
		return strings.TrimSpace(item.Formatted.Transcript)
	case item.Formatted.Text != "":
		return item.Formatted.Text
	case len(item.Formatted.Audio) > 0:
		return "(awaiting transcript)"
	default:
		return "(empty)"
	}
}

func renderConversation(items []conversation.Item, width int) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, renderItem(item, width))
	}
	return strings.Join(lines, "\n")
}

func renderEntry(elapsed string, entry eventlog.Entry, width int) string {
	direction := clientStyle.Render("↑")
	if entry.Source == realtime.SourceServer {
		direction = serverStyle.Render("↓")
	}

	line := fmt.Sprintf("%s %s %s", mutedStyle.Render(elapsed), direction, entry.Type)
	if entry.Count > 1 {
		line += mutedStyle.Render(fmt.Sprintf(" (%d)", entry.Count))
	}

	payload, err := json.Marshal(entry.Payload)
	if err != nil || width <= 0 {
		return line
	}
	return line + "\n  " + mutedStyle.Render(truncate.StringWithTail(string(payload), uint(max(width-2, 1)), "…"))
}

func renderQuiz(state quiz.State, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  score %d\n", titleStyle.Render("Quiz"), state.Score)

	if state.Question == nil {
		b.WriteString(mutedStyle.Render("Ask the host for a question."))
	} else {
		b.WriteString(wordwrap.String(state.Question.Question, width))
		for i, option := range state.Question.Options {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, option)
		}
	}

	switch {
	case state.SubmissionInFlight:
		b.WriteString("\n" + mutedStyle.Render("Checking…"))
	case state.Feedback == quiz.FeedbackCorrect:
		b.WriteString("\n" + correctStyle.Render(state.Feedback))
	case state.Feedback != "":
		b.WriteString("\n" + errorStyle.Render(state.Feedback))
	}
	return b.String()
}

func renderLevels(bands []float64) string {
	if len(bands) == 0 {
		return ""
	}
	var b strings.Builder
	for _, level := range bands {
		level = min(max(level, 0), 1)
		b.WriteRune(levelGlyphs[int(level*float64(len(levelGlyphs)-1))])
	}
	return b.String()
}
