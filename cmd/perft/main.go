package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kestrelchess/kestrel/board"
	"github.com/kestrelchess/kestrel/movegen"
)

var (
	fen   = flag.String("fen", board.FENStartPos, "position to count from")
	depth = flag.Int("depth", 5, "perft depth")
)

func main() {
	flag.Parse()

	b, err := board.ParseFEN(*fen)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad fen:", err)
		os.Exit(1)
	}
	for d := 1; d <= *depth; d++ {
		start := time.Now()
		nodes := movegen.Perft(&b, d)
		elapsed := time.Since(start)
		fmt.Printf("perft(%d) = %-12d %8.3fs  %.0f nps\n",
			d, nodes, elapsed.Seconds(), float64(nodes)/elapsed.Seconds())
	}
}
