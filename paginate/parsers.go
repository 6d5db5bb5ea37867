package paginate

import (
	"github.com/joshjon/cryptkit/id"
)

// IDCursorParser parses cursors holding a TypeID of type I.
func IDCursorParser[I id.ID, PI id.SubtypePtr[I]]() CursorParserFunc[I] {
	return func(rawCursor string) (*I, error) {
		entityID, err := id.Parse[I, PI](rawCursor)
		if err != nil {
			return nil, err
		}
		return &entityID, nil
	}
}

// KeyIDCursorParser parses cursors holding an id.KeyID.
func KeyIDCursorParser() CursorParserFunc[id.KeyID] {
	return IDCursorParser[id.KeyID]()
}
