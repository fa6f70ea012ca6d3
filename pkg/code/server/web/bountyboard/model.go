package bountyboard

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/bountyboard"
	"github.com/code-payments/bounty-board/pkg/database/query"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
	"github.com/code-payments/bounty-board/pkg/solana/token"
)

const (
	maxRequestBodySize = 64 * 1024
)

var (
	errInvalidSignature = errors.New("signature is invalid")
)

type accountMetaModel struct {
	PublicKey  string `json:"public_key"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

type signatureModel struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// ExecuteRequest is the body of an instruction submission. Data is standard
// base64, keys and signatures are base58. The nonce is a UUID covered by every
// signature, and a signed message is only ever executed once.
type ExecuteRequest struct {
	Program    string             `json:"program"`
	Data       string             `json:"data"`
	Accounts   []accountMetaModel `json:"accounts"`
	Nonce      string             `json:"nonce"`
	Signatures []signatureModel   `json:"signatures"`
}

// NewExecuteRequest builds the request body for an instruction signed by the
// provided keys under a fresh nonce.
func NewExecuteRequest(ix solana.Instruction, signers ...ed25519.PrivateKey) *ExecuteRequest {
	nonce := uuid.New()

	req := &ExecuteRequest{
		Program: base58.Encode(ix.Program),
		Data:    base64.StdEncoding.EncodeToString(ix.Data),
		Nonce:   nonce.String(),
	}

	for _, meta := range ix.Accounts {
		req.Accounts = append(req.Accounts, accountMetaModel{
			PublicKey:  base58.Encode(meta.PublicKey),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		})
	}

	message := ix.Message(nonce[:])
	for _, signer := range signers {
		req.Signatures = append(req.Signatures, signatureModel{
			PublicKey: base58.Encode(signer.Public().(ed25519.PublicKey)),
			Signature: base58.Encode(ed25519.Sign(signer, message)),
		})
	}

	return req
}

// verifiedInstruction is a submitted instruction whose signer flags have been
// reduced to the keys with a valid signature.
type verifiedInstruction struct {
	ix      solana.Instruction
	signers []ed25519.PublicKey

	// receipt is recorded when the instruction commits, and rejects any
	// resubmission of the same signed message.
	receipt ed25519.PublicKey
}

func newVerifiedInstructionFromHttpContext(r *http.Request) (*verifiedInstruction, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return nil, err
	}

	var req ExecuteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("request body is not valid json")
	}

	return req.verify()
}

func (req *ExecuteRequest) verify() (*verifiedInstruction, error) {
	program, err := decodePublicKey(req.Program)
	if err != nil {
		return nil, errors.New("program is not a public key")
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, errors.New("data is not valid base64")
	}

	accounts := make([]solana.AccountMeta, len(req.Accounts))
	for i, model := range req.Accounts {
		key, err := decodePublicKey(model.PublicKey)
		if err != nil {
			return nil, errors.Errorf("account %d is not a public key", i)
		}
		accounts[i] = solana.AccountMeta{
			PublicKey:  key,
			IsWritable: model.IsWritable,
		}
	}

	nonce, err := uuid.Parse(req.Nonce)
	if err != nil {
		return nil, errors.New("nonce is not a valid uuid")
	}

	ix := solana.NewInstruction(program, data, accounts...)
	message := ix.Message(nonce[:])

	verified := make(map[string]struct{})
	var signers []ed25519.PublicKey
	for _, model := range req.Signatures {
		key, err := decodePublicKey(model.PublicKey)
		if err != nil {
			return nil, errors.New("signer is not a public key")
		}

		signature, err := base58.Decode(model.Signature)
		if err != nil || len(signature) != ed25519.SignatureSize {
			return nil, errInvalidSignature
		}

		if !ed25519.Verify(key, message, signature) {
			return nil, errInvalidSignature
		}

		if _, ok := verified[string(key)]; !ok {
			verified[string(key)] = struct{}{}
			signers = append(signers, key)
		}
	}

	// Signer flags are only honoured for keys that actually signed
	for i, model := range req.Accounts {
		_, ok := verified[string(accounts[i].PublicKey)]
		ix.Accounts[i].IsSigner = model.IsSigner && ok
	}

	return &verifiedInstruction{
		ix:      ix,
		signers: signers,
		receipt: bank.GetReceiptKey(message),
	}, nil
}

func decodePublicKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key length: %d", len(decoded))
	}
	return decoded, nil
}

func getUint32QueryParam(values url.Values, name string) (uint32, error) {
	raw := values.Get(name)
	if len(raw) == 0 {
		return 0, errors.Errorf("%s query parameter missing", name)
	}

	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Errorf("%s query parameter is not a u32", name)
	}
	return uint32(parsed), nil
}

func getQueryOptions(values url.Values, maxLimit uint64) (*query.QueryOptions, error) {
	var opts []query.Option

	if raw := values.Get("limit"); len(raw) > 0 {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errors.New("limit query parameter is not a number")
		}
		opts = append(opts, query.WithLimit(limit))
	}

	if raw := values.Get("cursor"); len(raw) > 0 {
		cursor, err := base58.Decode(raw)
		if err != nil || len(cursor) != 8 {
			return nil, errors.New("cursor query parameter is invalid")
		}
		opts = append(opts, query.WithCursor(cursor))
	}

	if raw := values.Get("order"); len(raw) > 0 {
		direction, err := query.ToOrdering(raw)
		if err != nil {
			return nil, errors.New("order query parameter must be asc or desc")
		}
		opts = append(opts, query.WithDirection(direction))
	}

	queryOptions, err := query.DefaultPaginationHandlerWithLimit(maxLimit, opts...)
	if err != nil {
		return nil, errors.Errorf("limit must be at most %d", maxLimit)
	}
	return queryOptions, nil
}

func toBoardView(address ed25519.PublicKey, board *bountyboard_program.BoardAccount) map[string]any {
	return map[string]any{
		"address":       base58.Encode(address),
		"board_id":      board.BoardId,
		"authority":     base58.Encode(board.Authority),
		"accepted_mint": base58.Encode(board.AcceptedMint),
	}
}

func toBountyView(bounty *bountyboard.Bounty, vaultAddress ed25519.PublicKey, vault *token.Account) map[string]any {
	view := map[string]any{
		"address":       base58.Encode(bounty.Address),
		"board":         base58.Encode(bounty.State.Board),
		"bounty_number": bounty.State.BountyNumber,
		"total":         bounty.State.Total,
		"is_closed":     bounty.State.IsClosed,
		"cursor":        bounty.Cursor.ToBase58(),
	}
	if bounty.State.BountyHunter != nil {
		view["bounty_hunter"] = *bounty.State.BountyHunter
	}
	if vault != nil {
		view["vault"] = base58.Encode(vaultAddress)
		view["vault_balance"] = vault.Amount
	}
	return view
}
