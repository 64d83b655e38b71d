package index

import "github.com/w-h-a/lio/storer"

type (
	Record       = storer.Record
	ScoredRecord = storer.ScoredRecord
	Filter       = storer.Filter
	Kind         = storer.Kind
)

const (
	KindUser      = storer.KindUser
	KindAssistant = storer.KindAssistant
	KindSystem    = storer.KindSystem
)
