package main

import "github.com/handyhub/booking-payments/cmd"

func main() {
	cmd.Execute()
}
