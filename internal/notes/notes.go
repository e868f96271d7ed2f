// Package notes extracts speaker notes from .pptx documents. A .pptx file is
// a zip of OOXML parts; slide order comes from ppt/presentation.xml and each
// slide's notes part is located through its relationships file.
package notes

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"slidecast/internal/services"
)

type presentationDoc struct {
	SldIDList sldIDList `xml:"sldIdLst"`
}

type sldIDList struct {
	IDs []sldID `xml:"sldId"`
}

type sldID struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type relationshipsDoc struct {
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type notesSlideDoc struct {
	Shapes []shape `xml:"cSld>spTree>sp"`
}

type shape struct {
	Placeholder placeholder `xml:"nvSpPr>nvPr>ph"`
	Paragraphs  []paragraph `xml:"txBody>p"`
}

type placeholder struct {
	Type string `xml:"type,attr"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text string `xml:"t"`
}

// Extract returns one speaker-note string per slide in presentation order.
// Slides without a notes part (or with an empty one) yield "". A document
// that cannot be opened or whose structure cannot be parsed is a hard error.
func Extract(documentPath string) ([]string, error) {
	reader, err := zip.OpenReader(documentPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract notes", "open document",
			fmt.Sprintf("%s is not a readable .pptx archive", documentPath), err)
	}
	defer reader.Close()

	parts := make(map[string]*zip.File, len(reader.File))
	for _, file := range reader.File {
		parts[file.Name] = file
	}

	slideParts, err := slideOrder(parts)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(slideParts))
	for _, slidePart := range slideParts {
		text, err := notesForSlide(parts, slidePart)
		if err != nil {
			return nil, err
		}
		result = append(result, text)
	}
	return result, nil
}

func slideOrder(parts map[string]*zip.File) ([]string, error) {
	var pres presentationDoc
	if err := decodePart(parts, "ppt/presentation.xml", &pres); err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract notes", "parse presentation", "", err)
	}

	var rels relationshipsDoc
	if err := decodePart(parts, "ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract notes", "parse presentation relationships", "", err)
	}
	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		targets[rel.ID] = rel.Target
	}

	slideParts := make([]string, 0, len(pres.SldIDList.IDs))
	for _, id := range pres.SldIDList.IDs {
		target, ok := targets[id.RID]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "extract notes", "resolve slide",
				fmt.Sprintf("missing relationship %q", id.RID), nil)
		}
		slideParts = append(slideParts, resolveTarget("ppt", target))
	}
	return slideParts, nil
}

func notesForSlide(parts map[string]*zip.File, slidePart string) (string, error) {
	relsPart := path.Join(path.Dir(slidePart), "_rels", path.Base(slidePart)+".rels")
	if _, ok := parts[relsPart]; !ok {
		return "", nil
	}

	var rels relationshipsDoc
	if err := decodePart(parts, relsPart, &rels); err != nil {
		return "", services.Wrap(services.ErrValidation, "extract notes", "parse slide relationships", "", err)
	}

	var notesPart string
	for _, rel := range rels.Relationships {
		if strings.HasSuffix(rel.Type, "/notesSlide") {
			notesPart = resolveTarget(path.Dir(slidePart), rel.Target)
			break
		}
	}
	if notesPart == "" {
		return "", nil
	}
	if _, ok := parts[notesPart]; !ok {
		return "", nil
	}

	var doc notesSlideDoc
	if err := decodePart(parts, notesPart, &doc); err != nil {
		return "", services.Wrap(services.ErrValidation, "extract notes", "parse notes slide", "", err)
	}

	// The notes body placeholder holds the narration text; other shapes
	// carry the slide thumbnail and page number.
	var lines []string
	for _, sp := range doc.Shapes {
		if sp.Placeholder.Type != "body" {
			continue
		}
		for _, p := range sp.Paragraphs {
			var sb strings.Builder
			for _, r := range p.Runs {
				sb.WriteString(r.Text)
			}
			lines = append(lines, sb.String())
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func decodePart(parts map[string]*zip.File, name string, dst any) error {
	file, ok := parts[name]
	if !ok {
		return fmt.Errorf("part %s not found", name)
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open part %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(dst); err != nil {
		return fmt.Errorf("decode part %s: %w", name, err)
	}
	return nil
}

// resolveTarget joins a relationship target onto its base part directory,
// collapsing "../" segments the way OOXML packages use them.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}
