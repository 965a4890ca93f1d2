package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/project"
)

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := a.dir().LoadAll()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range projects {
				fmt.Fprintf(out, "%s  %s %s\n",
					dimStyle.Render(p.ID()),
					accentStyle.Render(p.Name()),
					dimStyle.Render(fmt.Sprintf("(%d requests)", p.RequestCount())),
				)
			}
			return nil
		},
	}
}

// resolveProject picks a project by id, then by case-insensitive name. An
// empty ref selects the first project.
func resolveProject(projects []*project.Project, ref string) (*project.Project, error) {
	ref = strings.TrimSpace(ref)
	if len(projects) == 0 {
		return nil, errdef.New(errdef.CodeNotFound, "no projects found")
	}
	if ref == "" {
		return projects[0], nil
	}
	for _, p := range projects {
		if p.ID() == ref {
			return p, nil
		}
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name(), ref) {
			return p, nil
		}
	}
	return nil, errdef.New(errdef.CodeNotFound, "project %q not found", ref)
}

func (a *app) loadProject(ref string) (*project.Project, error) {
	projects, err := a.dir().LoadAll()
	if err != nil {
		return nil, err
	}
	return resolveProject(projects, ref)
}

// findRequest matches by id first, then by name. Ambiguous names are
// rejected.
func findRequest(p *project.Project, ref string) (*model.Request, error) {
	all := p.Requests()
	for _, r := range all {
		if r.ID == ref {
			return r, nil
		}
	}
	var match *model.Request
	for _, r := range all {
		if !strings.EqualFold(r.Name, ref) {
			continue
		}
		if match != nil {
			return nil, errdef.New(errdef.CodeConflict, "request name %q is ambiguous, use its id", ref)
		}
		match = r
	}
	if match == nil {
		return nil, errdef.New(errdef.CodeNotFound, "request %q not found in %s", ref, p.Name())
	}
	return match, nil
}
