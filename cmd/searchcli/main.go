// Command searchcli runs one search over documents supplied on stdin
// and prints the ranked results to stdout.
//
// Input layout:
//
//	line 1: stop words, space separated (may be empty)
//	line 2: document count N
//	next:   N documents; each is a text line followed by a metadata
//	        line "STATUS n r1 .. rn" (status word, rating count, then
//	        that many integer ratings)
//	last:   the query
//
// With -simple each document is a single text line: status defaults to
// ACTUAL and the rating column is omitted from the output.
//
// Each result is printed as
//
//	{ document_id = 1, relevance = 0.866434, rating = 5 }
//
// with relevance rendered to six significant digits. Malformed input
// (bad counts, unknown status words, reused ids) aborts with a message
// on stderr and a non-zero exit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/internal/tokenizer"
	"github.com/searchlab/ranksearch/pkg/config"
)

func main() {
	simple := flag.Bool("simple", false, "documents are one text line each, without status or ratings")
	topK := flag.Int("top", config.DefaultTopK, "maximum number of results to print")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *simple, *topK); err != nil {
		fmt.Fprintf(os.Stderr, "searchcli: %v\n", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, simple bool, topK int) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	stopLine, err := readLine(sc)
	if err != nil {
		return fmt.Errorf("reading stop words: %w", err)
	}
	eng := engine.New(config.EngineConfig{
		TopK:      topK,
		StopWords: tokenizer.Split(stopLine),
	})

	countLine, err := readLine(sc)
	if err != nil {
		return fmt.Errorf("reading document count: %w", err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil || count < 0 {
		return fmt.Errorf("document count must be a non-negative integer, got %q", strings.TrimSpace(countLine))
	}

	for id := 0; id < count; id++ {
		text, err := readLine(sc)
		if err != nil {
			return fmt.Errorf("reading document %d: %w", id, err)
		}
		status := document.StatusActual
		var ratings []int
		if !simple {
			meta, err := readLine(sc)
			if err != nil {
				return fmt.Errorf("reading document %d metadata: %w", id, err)
			}
			status, ratings, err = parseMetaLine(meta)
			if err != nil {
				return fmt.Errorf("document %d: %w", id, err)
			}
		}
		if err := eng.AddDocument(id, text, status, ratings); err != nil {
			return fmt.Errorf("adding document %d: %w", id, err)
		}
	}

	query, err := readLine(sc)
	if err != nil {
		return fmt.Errorf("reading query: %w", err)
	}

	for _, doc := range eng.FindTopDocuments(query) {
		if simple {
			fmt.Fprintf(out, "{ document_id = %d, relevance = %s }\n",
				doc.ID, formatRelevance(doc.Relevance))
		} else {
			fmt.Fprintf(out, "{ document_id = %d, relevance = %s, rating = %d }\n",
				doc.ID, formatRelevance(doc.Relevance), doc.Rating)
		}
	}
	return nil
}

func readLine(sc *bufio.Scanner) (string, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return sc.Text(), nil
}

// parseMetaLine decodes "STATUS n r1 .. rn". The rating count must
// match the number of ratings that follow it.
func parseMetaLine(line string) (document.Status, []int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("metadata line needs a status and a rating count, got %q", line)
	}
	status, err := document.ParseStatus(fields[0])
	if err != nil {
		return "", nil, err
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return "", nil, fmt.Errorf("rating count must be a non-negative integer, got %q", fields[1])
	}
	if len(fields) != 2+n {
		return "", nil, fmt.Errorf("expected %d ratings, got %d", n, len(fields)-2)
	}
	ratings := make([]int, n)
	for i := range ratings {
		r, err := strconv.Atoi(fields[2+i])
		if err != nil {
			return "", nil, fmt.Errorf("rating %q is not an integer", fields[2+i])
		}
		ratings[i] = r
	}
	return status, ratings, nil
}

// formatRelevance renders a score with six significant digits, the
// precision the console output has always used.
func formatRelevance(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
