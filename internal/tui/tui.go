// Package tui implements the terminal user interface for picking a .reqx
// file and one of the requests inside it, this is what bare `reqx` runs.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/reqx/internal/reqx"
	"go.followtheprocess.codes/reqx/internal/spec"
	"go.followtheprocess.codes/reqx/internal/syntax"
	"go.followtheprocess.codes/reqx/internal/syntax/parser"
	"go.followtheprocess.codes/reqx/internal/transport"
	"go.followtheprocess.codes/reqx/internal/tui/components/filepicker"
	"go.followtheprocess.codes/reqx/internal/tui/components/list"
)

// Run runs the TUI, this is what happens when users call `reqx` with no arguments.
func Run() error {
	model := filepicker.New()

	tm, err := tea.NewProgram(&model).Run()
	if err != nil {
		return err
	}

	final, ok := tm.(filepicker.Model)
	if !ok {
		return fmt.Errorf("tui error, final model was not as expected: %T", tm)
	}

	file := final.Selected()
	if file == "" {
		// User quit without picking anything
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := parser.New(file, f, syntax.PrettyConsoleHandler(os.Stderr))
	if err != nil {
		return err
	}

	document, err := p.Parse()
	if err != nil {
		return fmt.Errorf("%w: %s is not valid reqx syntax", err, file)
	}

	resolved := spec.Resolve(document)

	listModel := list.New("HTTP requests in "+file, resolved.Requests)

	tm, err = tea.NewProgram(&listModel, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	finalListModel, ok := tm.(list.Model)
	if !ok {
		return fmt.Errorf("tui error, list final model was not as expected: %T", tm)
	}

	request, picked := finalListModel.Selected()
	if !picked {
		return nil
	}

	options := reqx.DoOptions{
		Request: request.Section,
		Timeout: transport.DefaultTimeout,
	}

	app := reqx.New(os.Stdout, os.Stderr, nil)
	return app.Do(file, options)
}
