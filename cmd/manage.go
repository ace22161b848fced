package main

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r4j3sh-com/reconprog/core"
	"github.com/r4j3sh-com/reconprog/modules"
)

func newManageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manage",
		Short: "Interactively list, modify or delete saved nmap profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return fmt.Errorf("profile management needs an interactive terminal")
			}
			res, err := state.orch.Execute(orBackground(cmd.Context()), "-", core.Task{Module: "nmap", Profile: core.ProfileManage})
			if err != nil {
				return err
			}
			if !res.OK() {
				return &exitCodeError{code: res.ExitCode, msg: res.Stderr}
			}
			pterm.Success.Println(strings.TrimSpace(res.Stdout))
			return nil
		},
	}
}

const (
	actionList   = "List profiles"
	actionModify = "Modify a profile"
	actionDelete = "Delete a profile"
	actionExit   = "Exit"
)

// profileEditor is the terminal front end of the nmap "manage" profile.
type profileEditor struct{}

func (e *profileEditor) EditProfiles(m *modules.NmapModule) error {
	for {
		action, err := pterm.DefaultInteractiveSelect.
			WithOptions([]string{actionList, actionModify, actionDelete, actionExit}).
			WithDefaultText("Manage saved nmap profiles").
			Show()
		if err != nil {
			return err
		}
		switch action {
		case actionList:
			e.list(m)
		case actionModify:
			if err := e.modify(m); err != nil {
				pterm.Error.Println(err)
			}
		case actionDelete:
			if err := e.delete(m); err != nil {
				pterm.Error.Println(err)
			}
		default:
			return nil
		}
	}
}

func (e *profileEditor) list(m *modules.NmapModule) {
	profiles := m.UserProfiles()
	if len(profiles) == 0 {
		pterm.Info.Println("No saved profiles.")
		return
	}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{p.Name, strings.Join(p.Args, " ")})
	}
	if err := state.console.Table([]string{"profile", "args"}, rows); err != nil {
		pterm.Error.Println(err)
	}
}

// pick asks for one of the saved profiles. ok is false when there is none.
func (e *profileEditor) pick(m *modules.NmapModule, prompt string) (string, bool, error) {
	profiles := m.UserProfiles()
	if len(profiles) == 0 {
		pterm.Info.Println("No saved profiles.")
		return "", false, nil
	}
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	name, err := pterm.DefaultInteractiveSelect.WithOptions(names).WithDefaultText(prompt).Show()
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (e *profileEditor) modify(m *modules.NmapModule) error {
	name, ok, err := e.pick(m, "Profile to modify")
	if err != nil || !ok {
		return err
	}
	newName, err := pterm.DefaultInteractiveTextInput.
		WithDefaultText("New name (empty keeps " + name + ")").
		Show()
	if err != nil {
		return err
	}
	line, err := pterm.DefaultInteractiveTextInput.
		WithDefaultText("New arguments (empty keeps current)").
		Show()
	if err != nil {
		return err
	}
	var args []string
	if strings.TrimSpace(line) != "" {
		if args, err = shlex.Split(line); err != nil {
			return fmt.Errorf("parse arguments: %w", err)
		}
	}
	if err := m.UpdateProfile(name, newName, args); err != nil {
		return err
	}
	pterm.Success.Println("Profile updated.")
	return nil
}

func (e *profileEditor) delete(m *modules.NmapModule) error {
	name, ok, err := e.pick(m, "Profile to delete")
	if err != nil || !ok {
		return err
	}
	confirm, err := pterm.DefaultInteractiveConfirm.
		WithDefaultText(fmt.Sprintf("Delete profile %q?", name)).
		Show()
	if err != nil || !confirm {
		return err
	}
	if err := m.DeleteProfile(name); err != nil {
		return err
	}
	pterm.Success.Printfln("Deleted profile %q", name)
	return nil
}
