package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/crypto"
	"github.com/swapcover/swapcover/pkg/ledger"
)

// Demonstrates the gasless flow end to end: generate a key, build a swap
// authorization, sign it, verify the signature, and print the JSON body a
// relayer would POST to the settlement node.
func main() {
	fmt.Println("Generating new keypair...")
	signer, err := crypto.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())

	pair := ledger.AssetPair{
		Asset0:      common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Asset1:      common.HexToAddress("0x2000000000000000000000000000000000000002"),
		FeeBps:      30,
		TickSpacing: 60,
	}
	auth := &crypto.SwapAuthorization{
		Caller: signer.Address(),
		Pair:   pair,
		Swap: ledger.SwapParams{
			ZeroForOne:   true,
			AmountIn:     1_000_000,
			MinAmountOut: 990_000,
		},
		AuxDataHash:       crypto.HashAuxData(nil),
		GaslessFeeDivisor: 10_000,
		Deadline:          time.Now().Add(time.Hour).Unix(),
	}

	fmt.Println("Authorization Details:")
	fmt.Printf("  Pair: %s / %s (fee %d bps)\n", pair.Asset0.Hex(), pair.Asset1.Hex(), pair.FeeBps)
	fmt.Printf("  AmountIn: %d (zeroForOne=%v)\n", auth.Swap.AmountIn, auth.Swap.ZeroForOne)
	fmt.Printf("  MinAmountOut: %d\n", auth.Swap.MinAmountOut)
	fmt.Printf("  FeeDivisor: %d\n", auth.GaslessFeeDivisor)
	fmt.Printf("  Deadline: %d\n\n", auth.Deadline)

	authorizer := crypto.NewAuthorizer(crypto.SettlementDomain(1337, common.Address{}))
	signature, err := authorizer.Sign(signer, auth)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Signature: 0x%x\n\n", signature)

	fmt.Println("Verifying signature...")
	valid, err := authorizer.Verify(auth, signature)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("✗ Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")

	body := map[string]any{
		"caller": auth.Caller.Hex(),
		"pair": map[string]any{
			"asset0":      pair.Asset0.Hex(),
			"asset1":      pair.Asset1.Hex(),
			"feeBps":      pair.FeeBps,
			"tickSpacing": pair.TickSpacing,
		},
		"zeroForOne":        auth.Swap.ZeroForOne,
		"amountIn":          auth.Swap.AmountIn,
		"minAmountOut":      auth.Swap.MinAmountOut,
		"gaslessFeeDivisor": auth.GaslessFeeDivisor,
		"deadline":          auth.Deadline,
		"signerKind":        uint8(crypto.SignerDirect),
		"signature":         fmt.Sprintf("0x%x", signature),
	}
	bodyJSON, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nTo submit this swap:")
	fmt.Println("  POST http://localhost:8080/api/v1/swaps/gasless")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(bodyJSON))
}
