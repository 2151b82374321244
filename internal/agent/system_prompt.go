package agent

import (
	"fmt"
	"strings"
	"time"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	AgentName   string
	AgentID     string
	Model       string
	Tools       []ToolDef
	Source      string
	UserName    string
	ExtraPrompt string
}

// BuildSystemPrompt constructs the system prompt for the LLM.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	name := cfg.AgentName
	if name == "" {
		name = "certagent"
	}
	fmt.Fprintf(&b, "You are %s, an assistant that answers questions about professional certifications and Credly badges.\n\n", name)

	fmt.Fprintf(&b, "Current date: %s\n", time.Now().Format("2006-01-02"))
	if cfg.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", cfg.Source)
	}
	if cfg.UserName != "" {
		fmt.Fprintf(&b, "User: %s\n", cfg.UserName)
	}

	b.WriteString("\n")

	b.WriteString("Guidelines:\n")
	b.WriteString("- Use get_certification_points for questions about how many points a certification is worth.\n")
	b.WriteString("- Use parse_credly_badge when the user gives a Credly badge URL.\n")
	b.WriteString("- If a tool returns an error, report it instead of guessing.\n")

	if len(cfg.Tools) > 0 {
		b.WriteString("\n## Available Tools\n\n")
		b.WriteString("You can call tools by outputting a fenced code block with the language tag `tool_call`:\n\n")
		b.WriteString("```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```\n\n")
		b.WriteString("After a tool is executed, the result will be provided. You may call multiple tools before giving your final response.\n\n")
		for _, t := range cfg.Tools {
			fmt.Fprintf(&b, "### %s\n%s\n", t.Name, t.Description)
			if t.InputSchema != "" {
				fmt.Fprintf(&b, "Input schema: %s\n", t.InputSchema)
			}
			b.WriteString("\n")
		}
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}
