package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const countQuestion = "How many iCloud emails you want to generate?: "

// promptCount asks until it reads a positive integer or input ends.
func promptCount(in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, countQuestion)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("failed to read count: %w", err)
			}
			return 0, errors.New("no count given")
		}

		count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && count > 0 {
			return count, nil
		}
		fmt.Fprintln(out, "Please enter a positive whole number.")
	}
}
