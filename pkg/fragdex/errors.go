package fragdex

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input file is not a readable workbook.
var ErrInvalidFormat = errors.New("invalid workbook format")

// DocumentLoadError means the workbook container could not be opened or
// hashed. It is terminal for the document: no fragments are produced.
type DocumentLoadError struct {
	Path string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("failed to load document %q: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error {
	return e.Err
}

// SheetError represents a failure in one component of one sheet. Sheet
// errors are absorbed during parsing: the failed component contributes no
// fragments and the rest of the workbook proceeds.
type SheetError struct {
	SheetName string
	Component string // "cells", "regions", "charts", "drawings", "tables"
	Err       error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q (%s): %v", e.SheetName, e.Component, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(sheetName, component string, err error) *SheetError {
	return &SheetError{
		SheetName: sheetName,
		Component: component,
		Err:       err,
	}
}
