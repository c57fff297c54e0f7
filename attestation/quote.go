package attestation

import (
	"encoding/hex"
	"fmt"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"
)

// QuoteMeasurements extracts the measurement registers from a raw DCAP quote.
// Measurements are attached to verification logs for diagnostics; the quote's
// cryptographic verification itself is the remote verifier's job.
func QuoteMeasurements(rawQuote []byte) (map[int]string, error) {
	protoQuote, err := tdx_abi.QuoteToProto(rawQuote)
	if err != nil {
		return nil, fmt.Errorf("could not parse quote: %w", err)
	}

	v4Quote, ok := protoQuote.(*tdx_pb.QuoteV4)
	if !ok {
		return nil, fmt.Errorf("unsupported quote type: %T", protoQuote)
	}

	measurements := map[int]string{
		0: hex.EncodeToString(v4Quote.TdQuoteBody.MrTd),
		1: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[0]),
		2: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[1]),
		3: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[2]),
		4: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[3]),
		5: hex.EncodeToString(v4Quote.TdQuoteBody.MrConfigId),
		6: hex.EncodeToString(v4Quote.TdQuoteBody.MrOwner),
		7: hex.EncodeToString(v4Quote.TdQuoteBody.MrOwnerConfig),
	}

	return measurements, nil
}
