package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

var errAborted = errors.New("applyform: aborted")

// Prompter asks the applicant for values. The survey implementation talks to
// the terminal; tests script the answers.
type Prompter interface {
	Input(ctx context.Context, message, def string, required bool) (string, error)
	Select(ctx context.Context, message string, options []string) (int, error)
	MultiSelect(ctx context.Context, message string, options []string) ([]int, error)
	Info(ctx context.Context, msg string) error
}

type surveyPrompter struct{}

func (surveyPrompter) Input(ctx context.Context, message, def string, required bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	var opts []survey.AskOpt
	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}
	if err := survey.AskOne(&survey.Input{Message: message, Default: def}, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Select(ctx context.Context, message string, options []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out int
	if err := survey.AskOne(&survey.Select{Message: message, Options: options}, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) MultiSelect(ctx context.Context, message string, options []string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []int
	if err := survey.AskOne(&survey.MultiSelect{Message: message, Options: options}, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(os.Stdout, msg)
	return err
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}
