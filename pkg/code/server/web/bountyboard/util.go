package bountyboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/ledger"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
)

const (
	successJsonKey = "success"
	errorJsonKey   = "error"
	codeJsonKey    = "code"
)

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	body := map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}

	var programErr bountyboard_program.BountyBoardError
	if errors.As(err, &programErr) {
		body[codeJsonKey] = programErr.Code()
	}

	var customErr solana.CustomError
	if errors.As(err, &customErr) {
		body[codeJsonKey] = int(customErr)
	}

	return body
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// HandleProgramErrorInWebContext maps an instruction or query failure onto an
// HTTP status code and the error that's safe to return to the caller.
func HandleProgramErrorInWebContext(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}

	var programErr bountyboard_program.BountyBoardError
	if errors.As(err, &programErr) {
		switch programErr {
		case bountyboard_program.ErrNotFound:
			return http.StatusNotFound, programErr
		case bountyboard_program.ErrUnauthorized:
			return http.StatusForbidden, programErr
		case bountyboard_program.ErrAlreadyInitialized,
			bountyboard_program.ErrAlreadyClosed,
			bountyboard_program.ErrBountyClosed:
			return http.StatusConflict, programErr
		default:
			return http.StatusBadRequest, programErr
		}
	}

	var customErr solana.CustomError
	if errors.As(err, &customErr) {
		return http.StatusBadRequest, customErr
	}

	switch {
	case errors.Is(err, bank.ErrAlreadyProcessed):
		return http.StatusConflict, bank.ErrAlreadyProcessed
	case errors.Is(err, ledger.ErrMissingSignature):
		return http.StatusForbidden, ledger.ErrMissingSignature
	case errors.Is(err, bountyboard_program.ErrInvalidProgram),
		errors.Is(err, bountyboard_program.ErrInvalidInstructionData),
		errors.Is(err, solana.ErrIncorrectProgram),
		errors.Is(err, solana.ErrIncorrectInstruction),
		errors.Is(err, solana.ErrMissingAccount):
		return http.StatusBadRequest, err
	case errors.Is(err, errUnsupportedProgram):
		return http.StatusBadRequest, err
	}

	return http.StatusInternalServerError, errors.New("internal server error")
}
