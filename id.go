package reps

import "github.com/xraph/reps/id"

// ID is the primary identifier type for all Reps entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
