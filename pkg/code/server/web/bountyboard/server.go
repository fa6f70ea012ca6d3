package bountyboard

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/bountyboard"
	"github.com/code-payments/bounty-board/pkg/metrics"
	"github.com/code-payments/bounty-board/pkg/rate"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
)

const (
	v1PathPrefix      = "/v1"
	v1ExecutePath     = v1PathPrefix + "/execute"
	v1GetBoardPath    = v1PathPrefix + "/board"
	v1GetBountyPath   = v1PathPrefix + "/bounty"
	v1GetBountiesPath = v1PathPrefix + "/bounties"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"

	maxBountiesPageSize = 100
)

var (
	errUnsupportedProgram = errors.New("unsupported program")
	errRateLimited        = errors.New("rate limited")
)

// Program executes instructions for a set of on-chain programs.
type Program interface {
	Supports(program ed25519.PublicKey) bool
	Process(ctx context.Context, ix solana.Instruction) error
}

type Server struct {
	log       *logrus.Entry
	processor *bountyboard.Processor
	programs  []Program
	limiter   rate.Limiter
}

// NewBountyBoardServer returns a Server that executes instructions against
// the bounty board processor and any additional programs, such as the token
// ledger.
func NewBountyBoardServer(processor *bountyboard.Processor, limiter rate.Limiter, programs ...Program) *Server {
	return &Server{
		log:       logrus.StandardLogger().WithField("type", "bountyboard/server"),
		processor: processor,
		programs:  append([]Program{processor}, programs...),
		limiter:   limiter,
	}
}

func (s *Server) executeHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			verified, err := newVerifiedInstructionFromHttpContext(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("program", base58.Encode(verified.ix.Program))

			for _, key := range rateLimitKeys(r, verified) {
				allowed, err := s.limiter.Allow(key)
				if err != nil {
					log.WithError(err).Warn("failure checking rate limit")
				} else if !allowed {
					return http.StatusTooManyRequests, NewGenericApiFailureResponseBody(errRateLimited)
				}
			}

			program, ok := s.getProgram(verified.ix.Program)
			if !ok {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errUnsupportedProgram)
			}

			err = program.Process(bank.WithReceipt(ctx, verified.receipt, nil), verified.ix)
			if err != nil {
				statusCode, err := HandleProgramErrorInWebContext(err)
				if statusCode == http.StatusInternalServerError {
					log.WithError(err).Warn("failure executing instruction")
				}
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			metrics.RecordCount(ctx, "bountyboard.server.execute", 1)
			return http.StatusOK, NewGenericApiSuccessResponseBody()
		}()

		s.writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getBoardHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			boardId, err := getUint32QueryParam(r.URL.Query(), "id")
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("board_id", boardId)

			address, board, err := s.processor.GetBoard(ctx, boardId)
			if err != nil {
				statusCode, err := HandleProgramErrorInWebContext(err)
				if statusCode == http.StatusInternalServerError {
					log.WithError(err).Warn("failure getting board")
				}
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["board"] = toBoardView(address, board)
			return http.StatusOK, respBody
		}()

		s.writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getBountyHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			boardId, err := getUint32QueryParam(r.URL.Query(), "board_id")
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			bountyNumber, err := getUint32QueryParam(r.URL.Query(), "bounty_number")
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithFields(logrus.Fields{
				"board_id":      boardId,
				"bounty_number": bountyNumber,
			})

			bounty, err := s.processor.GetBounty(ctx, boardId, bountyNumber)
			if err != nil {
				statusCode, err := HandleProgramErrorInWebContext(err)
				if statusCode == http.StatusInternalServerError {
					log.WithError(err).Warn("failure getting bounty")
				}
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			vaultAddress, vault, err := s.processor.GetBountyVault(ctx, boardId, bountyNumber)
			if err != nil && err != bountyboard_program.ErrNotFound {
				log.WithError(err).Warn("failure getting bounty vault")
				statusCode, err := HandleProgramErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["bounty"] = toBountyView(bounty, vaultAddress, vault)
			return http.StatusOK, respBody
		}()

		s.writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getBountiesHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			boardId, err := getUint32QueryParam(r.URL.Query(), "board_id")
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			log = log.WithField("board_id", boardId)

			queryOptions, err := getQueryOptions(r.URL.Query(), maxBountiesPageSize)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			bounties, err := s.processor.GetBountiesByBoard(ctx, boardId, queryOptions.Cursor, queryOptions.Limit, queryOptions.SortBy)
			if err == bountyboard_program.ErrNotFound {
				// An existing board without bounties is an empty page
				if _, _, err := s.processor.GetBoard(ctx, boardId); err == nil {
					bounties = nil
				} else {
					statusCode, err := HandleProgramErrorInWebContext(err)
					return statusCode, NewGenericApiFailureResponseBody(err)
				}
			} else if err != nil {
				log.WithError(err).Warn("failure getting bounties")
				statusCode, err := HandleProgramErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			views := make([]map[string]any, len(bounties))
			for i, bounty := range bounties {
				views[i] = toBountyView(bounty, nil, nil)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["bounties"] = views
			return http.StatusOK, respBody
		}()

		s.writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		v1ExecutePath:     s.executeHandler(v1ExecutePath),
		v1GetBoardPath:    s.getBoardHandler(v1GetBoardPath),
		v1GetBountyPath:   s.getBountyHandler(v1GetBountyPath),
		v1GetBountiesPath: s.getBountiesHandler(v1GetBountiesPath),
	}
}

func (s *Server) getProgram(address ed25519.PublicKey) (Program, bool) {
	for _, program := range s.programs {
		if program.Supports(address) {
			return program, true
		}
	}
	return nil, false
}

func (s *Server) writeResponse(log *logrus.Entry, w http.ResponseWriter, statusCode int, body GenericApiResponseBody) {
	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body.ToString())); err != nil {
		log.WithError(err).Warn("failed to write body")
	}
}

// rateLimitKeys returns the buckets a submission is charged against. Every
// submission is limited by the caller's host, since signers are free to
// create. Signed submissions are also limited by their first verified signer.
func rateLimitKeys(r *http.Request, verified *verifiedInstruction) []string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	keys := []string{"host:" + host}
	if len(verified.signers) > 0 {
		keys = append(keys, "signer:"+base58.Encode(verified.signers[0]))
	}
	return keys
}
