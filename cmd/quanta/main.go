// Command quanta exercises the five stream codecs in this module directly
// against stdin/stdout. It is not an archive manager: it carries no table
// of contents, no multi-file container, and none of the original tool's
// `x r p t l a d` command set beyond the compress/decompress distinction a
// single stream needs. It exists so the module has a runnable entry point
// that calls each codec's Writer/Reader the way a real container layer
// would.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/obi99/quanta/bwt"
	"github.com/obi99/quanta/huffman"
	"github.com/obi99/quanta/lzss"
	"github.com/obi99/quanta/lzw"
	"github.com/obi99/quanta/ppmc"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("quanta: ")

	codec := flag.String("codec", "", "codec to use: huffman, bwt, lzss, lzw, ppmc")
	decompress := flag.Bool("d", false, "decompress stdin instead of compressing it")
	order := flag.Int("order", ppmc.DefaultOrder, "ppmc context order, 0..4 (ignored by other codecs)")
	flag.Parse()

	if err := run(*codec, *decompress, *order, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(codec string, decompress bool, order int, in io.Reader, out io.Writer) error {
	cin := &countingReader{r: in}
	cout := &countingWriter{w: out}
	start := time.Now()

	var err error
	switch codec {
	case "huffman":
		if decompress {
			err = copyClose(huffman.NewReader(cin), cout)
		} else {
			err = writeClose(huffman.NewWriter(cout), cin)
		}
	case "bwt":
		if decompress {
			err = copyClose(bwt.NewReader(cin), cout)
		} else {
			err = writeClose(bwt.NewWriter(cout), cin)
		}
	case "lzss":
		if decompress {
			err = copyClose(lzss.NewReader(cin), cout)
		} else {
			err = writeClose(lzss.NewWriter(cout), cin)
		}
	case "lzw":
		if decompress {
			err = copyClose(lzw.NewReader(cin), cout)
		} else {
			err = writeClose(lzw.NewWriter(cout), cin)
		}
	case "ppmc":
		if decompress {
			err = copyClose(ppmc.NewReader(cin, order), cout)
		} else {
			err = writeClose(ppmc.NewWriter(cout, order), cin)
		}
	default:
		return fmt.Errorf("unknown -codec %q: want one of huffman, bwt, lzss, lzw, ppmc", codec)
	}
	if err != nil {
		return err
	}
	log.Printf("codec=%s decompress=%v order=%d in=%d out=%d elapsed=%s",
		codec, decompress, order, cin.n, cout.n, time.Since(start))
	return nil
}

// countingReader and countingWriter track bytes moved through in/out so run
// can log them without the codecs themselves knowing anything about logging.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// copyClose drains r (a decoding io.Reader) into w. None of this module's
// Readers implement io.Closer, so there is nothing to close on that side.
func copyClose(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

// writeClose streams r's bytes through an encoding io.WriteCloser and
// flushes its trailing state with Close.
func writeClose(w io.WriteCloser, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
