package peekrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatusError maps the sentinel errors a PeekServiceServer implementation
// returns onto grpc status codes, so a client sees the same sentinel back
// out of Peek after a round trip through the wire.
func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEndOfStream):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, ErrTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrOperationObsolete):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatusError is the client-side inverse: translate a status code from
// a failed Invoke back into the sentinel a caller can compare against with
// errors.Is.
func fromStatusError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.OutOfRange:
		return ErrEndOfStream
	case codes.DeadlineExceeded:
		return ErrTimeout
	case codes.FailedPrecondition:
		return ErrOperationObsolete
	default:
		return err
	}
}
