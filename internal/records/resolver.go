package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/llm"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/model"
)

// Block and lot are strings so leading zeros survive
var parcelSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "status": {"type": "string", "enum": ["found", "not_found", "ambiguous"]},
    "block": {"type": "string", "description": "Assessor block number exactly as recorded, keep leading zeros"},
    "lot": {"type": "string", "description": "Assessor lot number exactly as recorded, keep leading zeros"}
  },
  "required": ["status", "block", "lot"],
  "additionalProperties": false
}`)

const resolverSystem = "You are a county property-records assistant. You map street addresses to assessor parcels. " +
	"Answer \"ambiguous\" when the address could match more than one parcel and \"not_found\" when you cannot identify one. Never guess."

type parcelAnswer struct {
	Status string `json:"status"`
	Block  string `json:"block"`
	Lot    string `json:"lot"`
}

// LLMResolver asks a structured-output judge for an address's parcel
type LLMResolver struct {
	judge  llm.Provider
	county string
	logger *zap.Logger
}

// NewLLMResolver creates a resolver for the given county
func NewLLMResolver(judge llm.Provider, county string, log *zap.Logger) *LLMResolver {
	return &LLMResolver{judge: judge, county: county, logger: logger.OrNop(log)}
}

// Resolve implements ParcelResolver
func (r *LLMResolver) Resolve(ctx context.Context, address string) (model.Parcel, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Parcel{}, fmt.Errorf("empty address: %w", model.ErrNotFound)
	}

	where := "apartment address"
	if r.county != "" {
		where = r.county + " apartment address"
	}

	resp, err := r.judge.Judge(ctx, llm.Request{
		System:     resolverSystem,
		Prompt:     fmt.Sprintf("Find the block number and lot number for this %s: %s", where, address),
		SchemaName: "parcel",
		Schema:     parcelSchema,
		MaxTokens:  128,
	})
	if err != nil {
		return model.Parcel{}, fmt.Errorf("resolve parcel: %w", err)
	}

	var answer parcelAnswer
	if err := llm.Decode(r.judge.Name(), resp, &answer); err != nil {
		return model.Parcel{}, fmt.Errorf("resolve parcel: %w", err)
	}

	switch answer.Status {
	case "ambiguous":
		return model.Parcel{}, fmt.Errorf("%q: %w", address, model.ErrAmbiguousAddress)
	case "not_found":
		return model.Parcel{}, fmt.Errorf("no parcel for %q: %w", address, model.ErrNotFound)
	case "found":
	default:
		return model.Parcel{}, model.NewSchemaError(r.judge.Name(), "resolve", fmt.Errorf("unknown status %q", answer.Status))
	}

	parcel := model.Parcel{Block: strings.TrimSpace(answer.Block), Lot: strings.TrimSpace(answer.Lot)}
	if !ValidParcel(parcel) {
		return model.Parcel{}, model.NewSchemaError(r.judge.Name(), "resolve", fmt.Errorf("malformed parcel %q/%q", answer.Block, answer.Lot))
	}

	r.logger.Debug("parcel resolved", zap.String("address", address), zap.String("parcel", parcel.String()))
	return parcel, nil
}
