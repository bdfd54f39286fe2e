// Command hash-key prints a bcrypt hash of an API key for use as the
// api.key_hash configuration value.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sungwon/mail-gateway/internal/auth"
)

func main() {
	var key string
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "API key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "read key: %v\n", err)
			os.Exit(1)
		}
		key = strings.TrimSpace(line)
	}

	if key == "" {
		fmt.Fprintln(os.Stderr, "usage: hash-key <key>")
		os.Exit(1)
	}

	hash, err := auth.HashKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
