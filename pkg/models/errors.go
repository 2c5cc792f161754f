package models

import "errors"

// ErrSourceNotFound is returned when an input file (broker export, symbol
// table or ledger journal) cannot be located.
var ErrSourceNotFound = errors.New("source not found")
