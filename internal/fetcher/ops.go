package fetcher

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// RawPair is one upstream pair object, kept as a lazily-queried gjson tree
// so internal/normalize can pull whichever fields are present without a
// strongly-typed intermediate struct for every possible shape.
type RawPair = gjson.Result

// flattenPairsShape normalizes the three possible upstream response shapes
// (bare array, {pairs:[...]}, bare object) into a single slice, per
// spec.md §4.2 and §6.
func flattenPairsShape(body []byte) []RawPair {
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root.Array()
	}
	if pairs := root.Get("pairs"); pairs.Exists() && pairs.IsArray() {
		return pairs.Array()
	}
	if pair := root.Get("pair"); pair.Exists() && pair.IsObject() {
		return []RawPair{pair}
	}
	if root.IsObject() && root.Get("pairAddress").Exists() {
		return []RawPair{root}
	}
	return nil
}

// GetPairsByPairAddresses issues one request per pair id (spec.md §4.2 op 1)
// and flattens each response. A pair id whose request still fails after
// retries is logged and skipped, so one failure does not abort the batch;
// an error is returned only when no pair was fetched at all and at least
// one request failed.
func (f *Fetcher) GetPairsByPairAddresses(ctx context.Context, pairIDs []string) ([]RawPair, error) {
	var out []RawPair
	var firstErr error
	for _, id := range pairIDs {
		path := fmt.Sprintf("/latest/dex/pairs/%s/%s", f.cfg.Chain, id)
		body, err := f.get(ctx, path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			f.log.Warn("get_pairs_by_pair_addresses: skipping pair id after exhausted retries",
				logger.String("pair_id", id), logger.FieldErr(err))
			continue
		}
		out = append(out, flattenPairsShape(body)...)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// GetPairsByTokenAddressesBatched chunks token ids by the provider's batch
// limit (<=30 ids per request, spec.md §4.2 op 2) and flattens each response.
func (f *Fetcher) GetPairsByTokenAddressesBatched(ctx context.Context, tokenIDs []string) ([]RawPair, error) {
	var out []RawPair
	for _, batch := range chunk(tokenIDs, tokensChunkSize) {
		path := fmt.Sprintf("/tokens/v1/%s/%s", f.cfg.Chain, joinComma(batch))
		body, err := f.get(ctx, path)
		if err != nil {
			f.log.Warn("get_pairs_by_token_addresses_batched: skipping batch after exhausted retries", logger.FieldErr(err))
			continue
		}
		out = append(out, flattenPairsShape(body)...)
	}
	return out, nil
}

// GetLatestTokenProfiles returns token addresses whose reported chain
// equals "solana" (spec.md §4.2 op 3). Response shapes tolerated: a bare
// array, or {profiles|tokenProfiles|token_profiles|data: [...]}.
func (f *Fetcher) GetLatestTokenProfiles(ctx context.Context) ([]string, error) {
	body, err := f.get(ctx, "/token-profiles/latest/v1")
	if err != nil {
		return nil, errors.Wrap(err, "get_latest_token_profiles")
	}
	root := gjson.ParseBytes(body)
	items := root.Array()
	if len(items) == 0 {
		for _, key := range []string{"profiles", "tokenProfiles", "token_profiles", "data"} {
			if v := root.Get(key); v.Exists() && v.IsArray() {
				items = v.Array()
				break
			}
		}
	}

	var addrs []string
	for _, item := range items {
		chainID := item.Get("chainId").String()
		if chainID == "" {
			chainID = item.Get("chain_id").String()
		}
		if chainID != f.cfg.Chain {
			continue
		}
		addr := item.Get("tokenAddress").String()
		if addr == "" {
			addr = item.Get("token_address").String()
		}
		if addr == "" {
			addr = item.Get("address").String()
		}
		if addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
