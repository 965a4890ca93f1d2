package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/internal/convert"
	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/project"
	"github.com/luminahq/lumina/internal/vars"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		ref     string
		newName string
	)
	cmd := &cobra.Command{
		Use:   "import <postman|openapi|insomnia|markdown> <file>",
		Short: "Import a collection, an OpenAPI document or a markdown request list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := convert.ParseFormat(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return errdef.Wrap(errdef.CodeFilesystem, err, "read %s", args[1])
			}
			res, err := convert.Import(format, data)
			if err != nil {
				return err
			}

			var p *project.Project
			if newName != "" {
				p = project.New("", newName)
			} else if p, err = a.loadProject(ref); err != nil {
				return err
			}
			p.Merge(res.Folder, res.Globals, res.Environments...)
			if err := a.dir().Save(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s into %s %s\n",
				accentStyle.Render(res.Folder.Name),
				p.Name(),
				dimStyle.Render(fmt.Sprintf("(%d requests, %d folders, %d globals, %d environments)",
					len(res.Folder.AllRequests()), res.Folder.CountFolders(), len(res.Globals), len(res.Environments))),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ref, "project", "p", "", "project id or name to merge into (default: first project)")
	cmd.Flags().StringVar(&newName, "new", "", "create a new project with this name instead")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		ref    string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project as a collection, a markdown request list or a project file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadProject(ref)
			if err != nil {
				return err
			}
			data, err := exportProject(p, format)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errdef.Wrap(errdef.CodeFilesystem, err, "write %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ref, "project", "p", "", "project id or name (default: first project)")
	cmd.Flags().StringVarP(&format, "format", "f", "postman", "postman, insomnia, markdown or project")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func exportProject(p *project.Project, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "":
		format = string(convert.FormatPostman)
	case "project", "lumina":
		return p.MarshalJSON()
	}
	f, err := convert.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return convert.Export(f, p.ExportSource())
}

func newEnvCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage project environments",
	}
	cmd.AddCommand(newEnvListCmd(a), newEnvImportCmd(a))
	return cmd
}

func newEnvListCmd(a *app) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List environments of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadProject(ref)
			if err != nil {
				return err
			}
			printEnvironments(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ref, "project", "p", "", "project id or name (default: first project)")
	return cmd
}

func printEnvironments(w io.Writer, p *project.Project) {
	activeID := ""
	if env, ok := p.ActiveEnvironment(); ok {
		activeID = env.ID
	}
	global := p.GlobalEnvironment()
	fmt.Fprintf(w, "%s %s\n", accentStyle.Render(global.Name), dimStyle.Render(fmt.Sprintf("(%d variables)", len(global.Variables))))
	for _, env := range p.Environments() {
		marker := " "
		if env.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s %s %s\n", marker, env.Name, dimStyle.Render(env.ID), dimStyle.Render(fmt.Sprintf("(%d variables)", len(env.Variables))))
	}
}

func newEnvImportCmd(a *app) *cobra.Command {
	var (
		ref      string
		name     string
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create an environment from a .env or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject(ref)
			if err != nil {
				return err
			}
			env, err := importEnvironment(p, args[0], name, activate)
			if err != nil {
				return err
			}
			if err := a.dir().Save(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added environment %s to %s %s\n",
				accentStyle.Render(env.Name), p.Name(),
				dimStyle.Render(fmt.Sprintf("(%d variables)", len(env.Variables))),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ref, "project", "p", "", "project id or name (default: first project)")
	cmd.Flags().StringVar(&name, "name", "", "environment name (default: derived from the file name)")
	cmd.Flags().BoolVar(&activate, "activate", false, "make the new environment active")
	return cmd
}

func importEnvironment(p *project.Project, path, name string, activate bool) (*vars.Environment, error) {
	values, err := vars.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = vars.EnvironmentName(path)
	}
	env := vars.NewEnvironment(name, values)
	p.AddEnvironment(env)
	if activate {
		p.SetActiveEnvironment(env.ID)
	}
	return env, nil
}
