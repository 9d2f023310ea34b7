// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ergostat/pkg/overlay"
)

var (
	pingAddr    string
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that a running bridge is answering",
	Long: `Request /status from a running bridge and report the round trip time and
the trainer link state.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Invalid bridge address`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().StringVar(&pingAddr, "addr", "http://localhost:8080", "Bridge HTTP address")
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func statusURL(addr string) (string, error) {
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return "", fmt.Errorf("empty bridge address")
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return addr + "/status", nil
}

func runPing(cmd *cobra.Command, args []string) error {
	url, err := statusURL(pingAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Address error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Ergostat - Bridge Ping\n")
	fmt.Printf("Bridge: %s\n", url)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	client := &http.Client{Timeout: time.Duration(pingTimeout) * time.Second}
	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		startTime := time.Now()
		status, err := fetchStatus(client, url)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		} else {
			rtt := time.Since(startTime)
			link := "trainer offline"
			if status.Connected {
				link = "trainer online"
			}
			fmt.Printf("mode=%s gear=%d %s, rtt=%v\n", status.Mode, status.Gear, link, rtt.Round(time.Millisecond))
			successCount++
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

func fetchStatus(client *http.Client, url string) (overlay.Status, error) {
	resp, err := client.Get(url)
	if err != nil {
		return overlay.Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return overlay.Status{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var status overlay.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return overlay.Status{}, fmt.Errorf("invalid status body: %w", err)
	}
	return status, nil
}
