package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/shtrace/pkg/schema"
	"github.com/ormasoftchile/shtrace/pkg/session"
)

// defaultTimeout bounds shtrace/trace runs so a hung script cannot hold
// the server.
const defaultTimeout = 60 * time.Second

// traceStatement is one executed statement in a shtrace/trace response.
type traceStatement struct {
	Script   string `json:"script"`
	Line     int    `json:"line"`
	Command  string `json:"command"`
	Depth    int    `json:"depth"`
	Subshell int    `json:"subshell,omitempty"`
}

// HandleTrace implements the shtrace/trace MCP tool: run a script to
// completion with every statement auto-advanced, and return the captured
// trace, output and exit status as JSON.
func HandleTrace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	script, _ := args["script"].(string)
	if script == "" {
		return errorResult("script argument is required"), nil
	}
	var scriptArgs []string
	if raw, ok := args["args"].(string); ok && raw != "" {
		scriptArgs = strings.Fields(raw)
	}
	timeout := defaultTimeout
	if secs, ok := args["timeout_secs"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}

	// Piped mode rather than headless: the server owns this process's
	// stdio, so child output must arrive as events.
	sess, err := session.New(session.Config{Script: script, Args: scriptArgs})
	if err != nil {
		return errorResult(err.Error()), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		status session.ExitStatus
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		status, err := sess.Run(runCtx)
		done <- outcome{status, err}
	}()

	var (
		statements []traceStatement
		stdout     strings.Builder
		stderr     strings.Builder
		diags      []string
	)
	for ev := range sess.Events() {
		switch ev := ev.(type) {
		case session.TraceEvent:
			if len(ev.Frames) == 0 {
				continue
			}
			top := ev.Frames[len(ev.Frames)-1]
			statements = append(statements, traceStatement{
				Script:   top.Script,
				Line:     top.Line,
				Command:  top.Command,
				Depth:    top.Depth,
				Subshell: top.Subshell,
			})
		case session.OutputEvent:
			if ev.Stderr {
				stderr.WriteString(ev.Text)
			} else {
				stdout.WriteString(ev.Text)
			}
		case session.DiagEvent:
			diags = append(diags, ev.Text)
		}
	}
	res := <-done

	exit := map[string]any{"code": res.status.Code}
	if res.status.Signaled {
		exit["signal"] = res.status.SignalName()
	}
	response := map[string]any{
		"script":     script,
		"exit":       exit,
		"statements": statements,
	}
	if stdout.Len() > 0 {
		response["stdout"] = stdout.String()
	}
	if stderr.Len() > 0 {
		response["stderr"] = stderr.String()
	}
	if len(diags) > 0 {
		response["diagnostics"] = diags
	}
	if res.err != nil {
		response["error"] = res.err.Error()
	}

	data, _ := json.MarshalIndent(response, "", "  ")

	isErr := res.err != nil || res.status.Code != 0
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}, nil
}

// HandleSchema implements the shtrace/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := schema.Generate()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
