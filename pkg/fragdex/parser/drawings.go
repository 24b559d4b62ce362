package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
)

// maxShapeDepth bounds recursion into grouped shapes. Drawings nested
// deeper than this are ignored rather than risking unbounded descent on a
// malformed part.
const maxShapeDepth = 16

// ImageInfo describes one embedded picture.
type ImageInfo struct {
	Name   string
	Target string // media part path inside the container
	Format string
	Width  int
	Height int
}

// SheetDrawing holds the auxiliary drawing content of one sheet: embedded
// pictures and the text bodies of shapes.
type SheetDrawing struct {
	Images    []ImageInfo
	TextBoxes []string
}

// ExtractDrawings reads the drawing parts of the workbook container and
// returns pictures and shape text keyed by sheet name.
func ExtractDrawings(xlsxPath string) (map[string]SheetDrawing, error) {
	r, err := zip.OpenReader(xlsxPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	result := make(map[string]SheetDrawing)

	sheetDrawings, err := getSheetDrawingMap(&r.Reader)
	if err != nil {
		return result, nil
	}

	for sheetName, drawingPath := range sheetDrawings {
		sd, err := parseDrawingPart(&r.Reader, drawingPath)
		if err != nil {
			continue
		}
		if len(sd.Images) > 0 || len(sd.TextBoxes) > 0 {
			result[sheetName] = sd
		}
	}

	return result, nil
}

// picRef is a picture's blip relationship within a drawing.
type picRef struct {
	rID  string
	name string
}

// parseDrawingPart parses one drawing XML part and resolves its picture
// relationships to media parts.
func parseDrawingPart(r *zip.Reader, drawingPath string) (SheetDrawing, error) {
	var sd SheetDrawing

	drawingXML, err := readZipFile(r, drawingPath)
	if err != nil || drawingXML == nil {
		return sd, err
	}

	pics, texts := parseDrawingContent(drawingXML)
	sd.TextBoxes = texts
	if len(pics) == 0 {
		return sd, nil
	}

	relsXML, err := readZipFile(r, drawingRelsPath(drawingPath))
	if err != nil || relsXML == nil {
		return sd, nil
	}
	imageTargets := parseRelationships(relsXML, "image")

	for _, pic := range pics {
		target, ok := imageTargets[pic.rID]
		if !ok {
			continue
		}
		mediaPath := resolveRelativePath(target, "xl/drawings")

		info := ImageInfo{
			Name:   pic.name,
			Target: mediaPath,
			Format: strings.TrimPrefix(path.Ext(mediaPath), "."),
		}
		if data, err := readZipFile(r, mediaPath); err == nil && data != nil {
			if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				info.Width = cfg.Width
				info.Height = cfg.Height
				info.Format = format
			}
		}
		sd.Images = append(sd.Images, info)
	}

	return sd, nil
}

// parseDrawingContent walks the anchor elements of a drawing part and
// collects picture references and shape text.
func parseDrawingContent(data []byte) ([]picRef, []string) {
	var pics []picRef
	var texts []string

	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok {
			switch se.Name.Local {
			case "twoCellAnchor", "oneCellAnchor", "absoluteAnchor":
				p, t := parseAnchorContent(decoder, 0)
				pics = append(pics, p...)
				texts = append(texts, t...)
			}
		}
	}

	return pics, texts
}

// parseAnchorContent parses the children of an anchor or group shape.
// Groups recurse with a depth counter capped at maxShapeDepth.
func parseAnchorContent(decoder *xml.Decoder, groupDepth int) ([]picRef, []string) {
	var pics []picRef
	var texts []string
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pic":
				if pic := parsePicElement(decoder); pic.rID != "" {
					pics = append(pics, pic)
				}
				depth--
			case "sp":
				if text := parseShapeText(decoder); text != "" {
					texts = append(texts, text)
				}
				depth--
			case "grpSp":
				if groupDepth+1 >= maxShapeDepth {
					skipElement(decoder)
				} else {
					p, tx := parseAnchorContent(decoder, groupDepth+1)
					pics = append(pics, p...)
					texts = append(texts, tx...)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return pics, texts
}

// parsePicElement parses one picture element for its name and blip rId.
func parsePicElement(decoder *xml.Decoder) picRef {
	var pic picRef
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "cNvPr":
				for _, attr := range t.Attr {
					if attr.Name.Local == "name" && pic.name == "" {
						pic.name = attr.Value
					}
				}
			case "blip":
				for _, attr := range t.Attr {
					if attr.Name.Local == "embed" {
						pic.rID = attr.Value
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	return pic
}

// parseShapeText collects the text runs of one shape element.
func parseShapeText(decoder *xml.Decoder) string {
	var text strings.Builder
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "t" {
				if txt, err := readElementText(decoder); err == nil {
					text.WriteString(txt)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}

	return strings.TrimSpace(text.String())
}
