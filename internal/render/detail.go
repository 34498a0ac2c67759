package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// RenderDetail renders a full issue view: header, metadata, description,
// comments, and the audit trail.
func RenderDetail(issue *model.Issue, comments []model.Comment, audit []model.AuditLogEntry) string {
	if !ColorsEnabled() {
		return renderPlainDetail(issue, comments, audit)
	}

	sections := []string{renderHeader(issue), renderMetadata(issue)}

	if issue.Description != "" {
		sections = append(sections, renderDescription(issue.Description))
	}
	if len(comments) > 0 {
		sections = append(sections, renderComments(comments))
	}
	if len(audit) > 0 {
		sections = append(sections, renderAudit(audit))
	}

	return strings.Join(sections, "\n\n")
}

func renderHeader(issue *model.Issue) string {
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	titleStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(issue.Status.Color())).
		Bold(true)

	return fmt.Sprintf("%s  %s\n%s",
		idStyle.Render(model.FormatID(issue.ID)),
		titleStyle.Render(issue.Title),
		statusStyle.Render(statusLabel(issue.Status)),
	)
}

func renderMetadata(issue *model.Issue) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var lines []string
	if name := issue.AssigneeName(); name != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Assignee:"), name))
	}
	if len(issue.Labels) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Labels:"), strings.Join(issue.LabelNames(), ", ")))
	}
	lines = append(lines, fmt.Sprintf("%s %d", labelStyle.Render("Version:"), issue.Version))
	lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Created:"), humanize.Time(issue.CreatedAt)))
	if issue.ClosedAt != nil {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Closed:"), humanize.Time(*issue.ClosedAt)))
	}

	return strings.Join(lines, "\n")
}

func renderDescription(description string) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	header := sectionStyle.Render("Description")

	rendered, err := RenderMarkdown(description)
	if err != nil {
		rendered = description
	}

	return header + "\n" + rendered
}

// RenderCommentList renders a comment list. Exported for the comment list
// command.
func RenderCommentList(comments []model.Comment) string {
	if len(comments) == 0 {
		return EmptyState("No comments.", "Add one with: issuedesk comment add ISS-<id> <text>", false)
	}
	if !ColorsEnabled() {
		var b strings.Builder
		writePlainComments(&b, comments)
		return strings.TrimRight(b.String(), "\n")
	}
	return renderComments(comments)
}

func renderComments(comments []model.Comment) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := sectionStyle.Render(fmt.Sprintf("Comments (%d)", len(comments)))

	var parts []string
	for _, c := range comments {
		body, err := RenderMarkdown(c.Body)
		if err != nil {
			body = c.Body
		}

		commentHeader := fmt.Sprintf("%s  %s",
			idStyle.Render(fmt.Sprintf("#%d", c.ID)),
			timeStyle.Render(humanize.Time(c.CreatedAt)),
		)

		parts = append(parts, commentHeader+"\n"+body)
	}

	return header + "\n" + strings.Join(parts, "\n\n")
}

// RenderAuditLog renders an issue's audit trail. Exported for the log
// command.
func RenderAuditLog(entries []model.AuditLogEntry) string {
	if len(entries) == 0 {
		return EmptyState("No audit entries.", "", false)
	}
	if !ColorsEnabled() {
		var b strings.Builder
		writePlainAudit(&b, entries)
		return strings.TrimRight(b.String(), "\n")
	}
	return renderAudit(entries)
}

// auditIcon returns a semantic icon for an audit action.
func auditIcon(action string) string {
	switch action {
	case model.ActionCreate, model.ActionImport:
		return "\u2728" // ✨
	case model.ActionComment:
		return "\u270d" // ✍
	case model.ActionLabelUpdate:
		return "\u25c6" // ◆
	case model.ActionBulkUpdate:
		return "\u2261" // ≡
	default:
		return "\u270e" // ✎
	}
}

// AuditSummary renders an entry's metadata as one short line.
func AuditSummary(e model.AuditLogEntry) string {
	d := e.DetailMap()
	switch e.Action {
	case model.ActionCreate:
		return fmt.Sprintf("created %q", fmt.Sprint(d["title"]))
	case model.ActionImport:
		return fmt.Sprintf("imported from CSV row %v", d["row"])
	case model.ActionComment:
		return fmt.Sprintf("commented #%v", d["comment_id"])
	case model.ActionUpdate:
		return "updated " + describeChanges(d)
	case model.ActionLabelUpdate:
		return fmt.Sprintf("labels %s -> %s", compactJSON(d["before"]), compactJSON(d["after"]))
	case model.ActionBulkUpdate:
		var parts []string
		if s, ok := d["status"].(string); ok {
			parts = append(parts, "status="+s)
		}
		if ids, ok := d["label_ids"]; ok && ids != nil {
			parts = append(parts, "labels="+compactJSON(ids))
		}
		return "bulk update " + strings.Join(parts, " ")
	default:
		if len(e.Details) == 0 {
			return strings.ToLower(e.Action)
		}
		return strings.ToLower(e.Action) + " " + string(e.Details)
	}
}

// describeChanges turns UPDATE {before, after} into "status: OPEN -> CLOSED".
func describeChanges(d map[string]any) string {
	before, _ := d["before"].(map[string]any)
	after, _ := d["after"].(map[string]any)
	if len(after) == 0 {
		return "nothing"
	}

	fields := make([]string, 0, len(after))
	for k := range after {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	changes := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "description" {
			changes = append(changes, "description")
			continue
		}
		changes = append(changes, fmt.Sprintf("%s: %v -> %v", f, before[f], after[f]))
	}
	return strings.Join(changes, ", ")
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func renderAudit(entries []model.AuditLogEntry) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	actionStyle := lipgloss.NewStyle().Bold(true)
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := sectionStyle.Render("Audit log")

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  %s %s %s  %s",
			auditIcon(e.Action),
			actionStyle.Render(e.Action),
			AuditSummary(e),
			timeStyle.Render(humanize.Time(e.CreatedAt)),
		))
	}

	return header + "\n" + strings.Join(lines, "\n")
}

// renderPlainDetail renders a detail view without any color or styling.
func renderPlainDetail(issue *model.Issue, comments []model.Comment, audit []model.AuditLogEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", model.FormatID(issue.ID), issue.Title)
	fmt.Fprintf(&b, "%s\n", statusLabel(issue.Status))

	b.WriteString("\n")
	if name := issue.AssigneeName(); name != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", name)
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.LabelNames(), ", "))
	}
	fmt.Fprintf(&b, "Version: %d\n", issue.Version)
	fmt.Fprintf(&b, "Created: %s\n", humanize.Time(issue.CreatedAt))
	if issue.ClosedAt != nil {
		fmt.Fprintf(&b, "Closed: %s\n", humanize.Time(*issue.ClosedAt))
	}

	if issue.Description != "" {
		fmt.Fprintf(&b, "\nDescription\n%s\n", issue.Description)
	}

	if len(comments) > 0 {
		fmt.Fprintf(&b, "\nComments (%d)\n", len(comments))
		writePlainComments(&b, comments)
	}

	if len(audit) > 0 {
		b.WriteString("\nAudit log\n")
		writePlainAudit(&b, audit)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writePlainComments(b *strings.Builder, comments []model.Comment) {
	for _, c := range comments {
		fmt.Fprintf(b, "#%d  %s\n%s\n", c.ID, humanize.Time(c.CreatedAt), c.Body)
	}
}

func writePlainAudit(b *strings.Builder, entries []model.AuditLogEntry) {
	for _, e := range entries {
		fmt.Fprintf(b, "  %s %s  %s\n", e.Action, AuditSummary(e), humanize.Time(e.CreatedAt))
	}
}
