package backend

import (
	"fmt"

	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/model"
)

var coinTypes = map[model.Asset]string{
	model.ICP:   "icp",
	model.CkBTC: "ckBtc",
	model.CkETH: "ckEth",
	model.CkSOL: "ckSol",
	model.INF:   "infinityCoin",
}

func coinTypeOf(asset model.Asset) (agent.Variant, error) {
	tag, ok := coinTypes[asset]
	if !ok {
		return agent.Variant{}, fmt.Errorf("no coin type for asset %s", asset)
	}
	return agent.Variant{Tag: tag}, nil
}

func assetOf(v agent.Variant) (model.Asset, error) {
	for asset, tag := range coinTypes {
		if tag == v.Tag {
			return asset, nil
		}
	}
	return "", fmt.Errorf("%w: unknown coin type %q", agent.ErrMalformedReply, v.Tag)
}
