package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relayhub/relay-gateway/internal/tui"
)

func main() {
	addr := flag.String("addr", "http://localhost:18790", "Gateway base URL")
	secret := flag.String("secret", os.Getenv("RELAY_SHARED_SECRET"), "Shared secret for bearer auth")
	flag.Parse()

	app := tui.NewApp(*addr, *secret)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gatewaytop: %v\n", err)
		os.Exit(1)
	}
}
