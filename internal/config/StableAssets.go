/*

This file contains the allow-list of assets treated as stable for the
assetStability feature.

Entries cover both asset symbols and the Stellar contract addresses the
balance sheets actually report, because testnet blobs tend to carry the
symbol while mainnet blobs carry the contract ID.

If an asset is not listed here it is treated as volatile. Keep this up to
date when new stablecoin vaults are registered.

*/

package config

var (
	StableAssets = map[string]bool{
		"USDC": true,
		"USDX": true,
		"EURC": true,
		"XUSD": true,

		// USDC issuer contracts
		"CCW67TSZV3SSS2HXMBQ5JFGCKJNXKZM7UQUWUZPUTHXSTZLEO7SJMI75": true, // mainnet
		"CBIELTK6YBZJU5UP2WWQEUCYKLPU6AUNZ2BQ4WWFEIE3USCIHMXQDAMA": true, // testnet

		// EURC issuer contracts
		"CDTKPWPLOURQA2SGTKTUQOWRCBZEORB4BWBOMJ3D3ZKQQOQET5BJLQDZ": true, // mainnet
	}
)

// IsStableAsset reports whether an asset identifier is in the stable allow-list.
func IsStableAsset(asset string) bool {
	return StableAssets[asset]
}
