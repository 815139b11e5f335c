// Command pkt2csv dumps a packet file's per-packet originator and timing
// info to CSV, mirroring the upstream rt_2_csv utility's CLI shape (§6 CLI
// surface). It is a diagnostic tool, not part of the data plane.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"jamcore/internal/packetfile"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("pkt2csv (jamcore)")
		return
	}

	inFile := flag.String("in-file", "", "packet file to read")
	outFile := flag.String("out-file", "", "CSV file to write")
	flag.Parse()

	if *inFile == "" || *outFile == "" {
		log.Fatal("pkt2csv: -in-file and -out-file are required")
	}

	reader, err := packetfile.NewPacketReader(*inFile)
	if err != nil {
		log.Fatalf("[pkt2csv] open %s: %v", *inFile, err)
	}
	defer reader.Close()

	out, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("[pkt2csv] create %s: %v", *outFile, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write([]string{"clientId", "timestamp", "sequence"}); err != nil {
		log.Fatalf("[pkt2csv] write header: %v", err)
	}

	n := 0
	for {
		p, err := reader.ReadPacket()
		if err != nil {
			if errors.Is(err, packetfile.ErrEOF) {
				break
			}
			log.Fatalf("[pkt2csv] read packet %d: %v", n, err)
		}
		row := []string{
			strconv.FormatUint(uint64(p.ClientID()), 10),
			strconv.FormatUint(p.ServerTime(), 10),
			strconv.FormatUint(uint64(p.SequenceNumber()), 10),
		}
		if err := w.Write(row); err != nil {
			log.Fatalf("[pkt2csv] write row %d: %v", n, err)
		}
		n++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("[pkt2csv] flush: %v", err)
	}
	log.Printf("[pkt2csv] wrote %d rows to %s", n, *outFile)
}
