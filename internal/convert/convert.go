// Package convert moves request trees in and out of third-party collection
// formats. Every importer returns a folder tree plus optional global
// variables and environments; nothing else about the source format survives.
package convert

import (
	"strings"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

type Format string

const (
	FormatPostman  Format = "postman"
	FormatOpenAPI  Format = "openapi"
	FormatInsomnia Format = "insomnia"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPostman, FormatOpenAPI, FormatInsomnia, FormatMarkdown:
		return f, nil
	case "swagger":
		return FormatOpenAPI, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", errdef.New(errdef.CodeValidation, "unknown format %q", s)
}

// Result is what an importer hands back. Globals and Environments may be
// empty.
type Result struct {
	Folder       *model.Folder
	Globals      map[string]string
	Environments []*vars.Environment
}

func Import(format Format, data []byte) (*Result, error) {
	switch format {
	case FormatPostman:
		return ImportPostman(data)
	case FormatOpenAPI:
		return ImportOpenAPI(data)
	case FormatInsomnia:
		return ImportInsomnia(data)
	case FormatMarkdown:
		return ImportMarkdown(data)
	}
	return nil, errdef.New(errdef.CodeValidation, "unknown import format %q", format)
}

// Source is what exporters read from a project.
type Source struct {
	Name         string
	Root         *model.Folder
	Globals      map[string]string
	Environments []*vars.Environment
}

// Export renders src in format. OpenAPI is import only.
func Export(format Format, src Source) ([]byte, error) {
	switch format {
	case FormatPostman:
		return ExportPostman(src.Name, src.Root, src.Globals)
	case FormatInsomnia:
		return ExportInsomnia(src)
	case FormatMarkdown:
		return ExportMarkdown(src.Name, src.Root)
	}
	return nil, errdef.New(errdef.CodeValidation, "export to %q is not supported", format)
}

// FileName is the download name for an export of project name.
func (f Format) FileName(name string) string {
	switch f {
	case FormatPostman:
		return name + ".postman_collection.json"
	case FormatInsomnia:
		return name + ".insomnia.json"
	case FormatMarkdown:
		return name + ".md"
	}
	return name + ".json"
}

func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/json"
}

// lenientMethod maps anything unrecognised to GET. Imports are forgiving;
// the project file decoder is not.
func lenientMethod(s string) model.Method {
	m, err := model.ParseMethod(s)
	if err != nil {
		return model.MethodGet
	}
	return m
}

func newImportedRequest(name string, method model.Method, url string) *model.Request {
	r := model.NewRequest(name)
	r.Method = method
	r.URL = url
	return r
}
