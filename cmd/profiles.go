package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r4j3sh-com/reconprog/modules"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List available modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.console.Modules(state.engine.Modules())
		},
	}
}

func newProfilesCmd() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles of a module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := state.engine.Lookup(module)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, pterm.DefaultSection.Sprintfln("%s: %s", m.Name(), m.Description()))
			if err := state.console.Profiles(m, state.cfg); err != nil {
				return err
			}
			if scanner, ok := m.(*modules.NmapModule); ok && len(scanner.UserProfiles()) > 0 {
				pterm.Info.Println("* user-defined profile")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "module name")
	cmd.MarkFlagRequired("module")
	return cmd
}

func newFlagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flags [flag]",
		Short: "Explain common nmap flags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				printFlagHelp()
				return nil
			}
			h, ok := modules.LookupFlagHelp(args[0])
			if !ok {
				return fmt.Errorf("no help for flag %s", args[0])
			}
			return state.console.Table([]string{"", ""}, [][]string{
				{"Flag", h.Flag},
				{"Description", h.Desc},
				{"When to use", h.Use},
				{"When to avoid", h.Avoid},
			})
		},
	}
}

func printFlagHelp() {
	rows := make([][]string, 0, len(modules.NmapFlagHelp))
	for _, h := range modules.NmapFlagHelp {
		rows = append(rows, []string{h.Flag, h.Desc, h.Use, h.Avoid})
	}
	if err := state.console.Table([]string{"flag", "description", "use", "avoid"}, rows); err != nil {
		pterm.Error.Println(err)
	}
}

func scanner() (*modules.NmapModule, error) {
	s, ok := modules.Scanner(state.engine)
	if !ok {
		return nil, fmt.Errorf("scanner module is not registered")
	}
	return s, nil
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage user-defined nmap profiles",
	}

	var saveArgs string
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Save nmap arguments as a named profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scanner()
			if err != nil {
				return err
			}
			argv, err := customArgs(saveArgs)
			if err != nil {
				return err
			}
			if err := s.SaveProfile(args[0], argv); err != nil {
				return err
			}
			pterm.Success.Printfln("Saved profile %q", args[0])
			return nil
		},
	}
	save.Flags().StringVar(&saveArgs, "args", "", "nmap arguments")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a user-defined profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scanner()
			if err != nil {
				return err
			}
			if err := s.DeleteProfile(args[0]); err != nil {
				return err
			}
			pterm.Success.Printfln("Deleted profile %q", args[0])
			return nil
		},
	}

	var renameArgs string
	rename := &cobra.Command{
		Use:   "rename NAME NEW_NAME",
		Short: "Rename a user-defined profile, optionally replacing its arguments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scanner()
			if err != nil {
				return err
			}
			var argv []string
			if renameArgs != "" {
				if argv, err = customArgs(renameArgs); err != nil {
					return err
				}
			}
			if err := s.UpdateProfile(args[0], args[1], argv); err != nil {
				return err
			}
			pterm.Success.Printfln("Updated profile %q", args[1])
			return nil
		},
	}
	rename.Flags().StringVar(&renameArgs, "args", "", "replacement nmap arguments")

	cmd.AddCommand(save, del, rename)
	return cmd
}
