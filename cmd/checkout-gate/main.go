package main

import "github.com/Checkout-Gate/checkoutgate/cmd/checkout-gate/cmd"

func main() {
	cmd.Execute()
}
