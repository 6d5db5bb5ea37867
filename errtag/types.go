package errtag

type Internal struct{ ErrorTag[CodeInternal] }

type InvalidArgument struct{ ErrorTag[CodeBadRequest] }

type NotFound struct{ ErrorTag[CodeNotFound] }

type Conflict struct{ ErrorTag[CodeConflict] }

type Unprocessable struct{ ErrorTag[CodeUnprocessable] }

type Unavailable struct{ ErrorTag[CodeUnavailable] }
