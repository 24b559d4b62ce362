package parser

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// Helpers for walking the raw OOXML container: workbook part discovery,
// relationship resolution, and token-stream reading with explicit depth
// counters. excelize does not expose chart or drawing parts, so those are
// read straight from the zip.

func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, nil
}

// readElementText collects character data until the current element closes.
func readElementText(decoder *xml.Decoder) (string, error) {
	var text string
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text, err
		}
		switch t := token.(type) {
		case xml.CharData:
			text += string(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text, nil
}

// skipElement consumes tokens until the current element closes.
func skipElement(decoder *xml.Decoder) {
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return
		}
		switch token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
}

func resolveRelativePath(target, baseDir string) string {
	if strings.HasPrefix(target, "../") {
		clean := target
		for strings.HasPrefix(clean, "../") {
			clean = strings.TrimPrefix(clean, "../")
		}
		return "xl/" + clean
	}
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return baseDir + "/" + target
}

// parseWorkbookSheets returns rId -> sheet name from xl/workbook.xml.
func parseWorkbookSheets(data []byte) map[string]string {
	result := make(map[string]string)
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var name, rID string
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					name = attr.Value
				case "id":
					rID = attr.Value
				}
			}
			if name != "" && rID != "" {
				result[rID] = name
			}
		}
	}

	return result
}

// parseWorkbookRels returns sheet name -> worksheet part path.
func parseWorkbookRels(data []byte, sheetsInfo map[string]string) map[string]string {
	result := make(map[string]string)
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var rID, target string
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					rID = attr.Value
				case "Target":
					target = attr.Value
				}
			}
			if sheetName, ok := sheetsInfo[rID]; ok && strings.Contains(strings.ToLower(target), "worksheet") {
				result[sheetName] = resolveRelativePath(target, "xl")
			}
		}
	}

	return result
}

// findRelationshipTarget returns the target of the first relationship whose
// type contains the given keyword.
func findRelationshipTarget(data []byte, typeKeyword string) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var relType, target string
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Type":
					relType = attr.Value
				case "Target":
					target = attr.Value
				}
			}
			if strings.Contains(strings.ToLower(relType), typeKeyword) {
				return target
			}
		}
	}

	return ""
}

// parseRelationships returns rId -> target for relationships whose type
// contains the given keyword.
func parseRelationships(data []byte, typeKeyword string) map[string]string {
	result := make(map[string]string)
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var rID, target, relType string
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					rID = attr.Value
				case "Target":
					target = attr.Value
				case "Type":
					relType = attr.Value
				}
			}
			if strings.Contains(strings.ToLower(relType), typeKeyword) {
				result[rID] = target
			}
		}
	}

	return result
}

// sheetRelsPath maps a worksheet part path to its rels part path.
func sheetRelsPath(partPath string) string {
	relsPath := strings.Replace(partPath, "worksheets/", "worksheets/_rels/", 1)
	return strings.Replace(relsPath, ".xml", ".xml.rels", 1)
}

// drawingRelsPath maps a drawing part path to its rels part path.
func drawingRelsPath(partPath string) string {
	relsPath := strings.Replace(partPath, "drawings/", "drawings/_rels/", 1)
	return strings.Replace(relsPath, ".xml", ".xml.rels", 1)
}

// getSheetDrawingMap returns sheet name -> drawing part path for every sheet
// that carries a drawing relationship.
func getSheetDrawingMap(r *zip.Reader) (map[string]string, error) {
	result := make(map[string]string)

	workbookXML, err := readZipFile(r, "xl/workbook.xml")
	if err != nil || workbookXML == nil {
		return result, nil
	}

	sheetsInfo := parseWorkbookSheets(workbookXML)
	if len(sheetsInfo) == 0 {
		return result, nil
	}

	wbRelsXML, err := readZipFile(r, "xl/_rels/workbook.xml.rels")
	if err != nil || wbRelsXML == nil {
		return result, nil
	}

	sheetFiles := parseWorkbookRels(wbRelsXML, sheetsInfo)

	for sheetName, sheetPath := range sheetFiles {
		sheetRelsXML, err := readZipFile(r, sheetRelsPath(sheetPath))
		if err != nil || sheetRelsXML == nil {
			continue
		}

		drawingPath := findRelationshipTarget(sheetRelsXML, "drawing")
		if drawingPath != "" {
			result[sheetName] = resolveRelativePath(drawingPath, "xl/drawings")
		}
	}

	return result, nil
}
