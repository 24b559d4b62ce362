package parser

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/richardlehane/mscfb"
)

// vbaProjectPart is where macro-enabled workbooks store the VBA project.
const vbaProjectPart = "xl/vbaProject.bin"

// vbaSystemStreams are bookkeeping streams of a VBA project, not code
// modules.
var vbaSystemStreams = map[string]bool{
	"dir":          true,
	"PROJECT":      true,
	"PROJECTwm":    true,
	"PROJECTlk":    true,
	"_VBA_PROJECT": true,
	"VBA":          true,
}

// MacroModules reports whether the workbook embeds a VBA project and lists
// its module stream names. The compound file is only walked for stream
// names; macro bytecode is never decoded.
func MacroModules(xlsxPath string) (bool, []string, error) {
	r, err := zip.OpenReader(xlsxPath)
	if err != nil {
		return false, nil, err
	}
	defer r.Close()

	data, err := readZipFile(&r.Reader, vbaProjectPart)
	if err != nil {
		return false, nil, err
	}
	if data == nil {
		return false, nil, nil
	}

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		// The project exists even when the compound file is unreadable.
		return true, nil, nil
	}

	var modules []string
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		name := entry.Name
		if entry.Size == 0 || vbaSystemStreams[name] || strings.HasPrefix(name, "__SRP_") {
			continue
		}
		modules = append(modules, name)
	}

	return true, modules, nil
}
