package peekcursor

import "context"

// AdvanceTo advances cursor past any buffered records strictly below
// (targetVersion, targetSubsequence), pulling remote data as needed. It
// returns nil once the cursor's head is at or past the target, or once it
// has established that the target lies strictly in the future (the caller
// then decides whether to wait and call again). It returns ErrEndOfStream
// if the remote permanently closes before the target is reached, or any
// other error the underlying RemoteMoreAvailable call produces.
func AdvanceTo(ctx context.Context, cursor Cursor, targetVersion uint64, targetSubsequence uint32) error {
	for {
		for cursor.HasRemaining() {
			h, ok := cursor.Get()
			if !ok {
				break
			}
			if h.Version > targetVersion {
				return nil
			}
			if h.Version == targetVersion && h.Subsequence >= targetSubsequence {
				return nil
			}
			cursor.Next()
		}

		ok, err := cursor.RemoteMoreAvailable(ctx)
		switch {
		case err != nil:
			return err
		case ok:
			continue
		default:
			return nil
		}
	}
}
