package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/gopacket"
	"github.com/sahib/sniffcap/capture"
	"github.com/sahib/sniffcap/ngsniffer"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func openCapture(ctx *cli.Context, path string, randomAccess bool) (capture.Reader, *capture.Format, error) {
	cfg := configFromContext(ctx)
	return registry.OpenFile(path, randomAccess, cfg)
}

func describePseudo(pseudo capture.PseudoHeader) string {
	switch hdr := pseudo.(type) {
	case *capture.EthernetHeader:
		flags := []string{}
		names := []string{"crc", "align", "no-resources", "overrun", "runt", "collision"}
		for idx, name := range names {
			if hdr.Errors&(1<<uint(idx)) != 0 {
				flags = append(flags, name)
			}
		}

		if len(flags) == 0 {
			return ""
		}

		return color.RedString("errors=%s", strings.Join(flags, ","))
	case *capture.FDDIHeader:
		if hdr.IndicatorsInvalid {
			return "indicators=invalid"
		}

		return fmt.Sprintf("crc-error=%v", hdr.CRCError)
	case *capture.P2PHeader:
		if hdr.Sent {
			return "sent"
		}

		return "received"
	case *capture.DTEDCEHeader:
		if hdr.FromDCE {
			return "from-dce"
		}

		return "from-dte"
	case *capture.ISDNHeader:
		return fmt.Sprintf("user-to-network=%v channel=%d", hdr.UserToNetwork, hdr.Channel)
	case *capture.ATMHeader:
		return fmt.Sprintf("aal=%d vpi=%d vci=%d cells=%d", hdr.AAL, hdr.VPI, hdr.VCI, hdr.Cells)
	}

	return ""
}

// printLayers lets gopacket decode what it knows of the record.
func printLayers(out io.Writer, rec *capture.Record) {
	linkType, ok := rec.Encap.LinkType()
	if !ok {
		fmt.Fprintf(out, "    (no decoder for %s)\n", rec.Encap)
		return
	}

	pkt := gopacket.NewPacket(rec.Data, linkType, gopacket.NoCopy)
	names := []string{}
	for _, layer := range pkt.Layers() {
		names = append(names, layer.LayerType().String())
	}

	line := strings.Join(names, " / ")
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		line += " " + color.YellowString("(%v)", errLayer.Error())
	}

	fmt.Fprintf(out, "    %s\n", line)
}

func printRecord(out io.Writer, idx int, offset int64, rec *capture.Record) {
	prefix := color.CyanString("@%d", offset)
	if idx >= 0 {
		prefix = fmt.Sprintf("#%-5d %s", idx, prefix)
	}

	fmt.Fprintf(out, "%s %s %s\n", prefix, rec, describePseudo(rec.Pseudo))
}

func handleInfo(ctx *cli.Context) error {
	rd, format, err := openCapture(ctx, ctx.Args().First(), false)
	if err != nil {
		return err
	}

	defer rd.Close()

	var (
		count, captured, wire uint64
		first, last           time.Time
		encaps                = map[capture.Encapsulation]int{}
	)

	for {
		rec, _, err := rd.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if count == 0 {
			first = rec.Timestamp
		}

		count++
		captured += uint64(rec.CaptureLength)
		wire += uint64(rec.Length)
		last = rec.Timestamp
		encaps[rec.Encap]++
	}

	out := ctx.App.Writer
	fmt.Fprintf(out, "Format:        %s (%s)\n", color.GreenString(format.Name), format.Description)
	fmt.Fprintf(out, "Encapsulation: %s\n", rd.Encapsulation())

	if sniffer, ok := capture.Unwrap(rd).(*ngsniffer.Reader); ok {
		info := sniffer.Info()
		fmt.Fprintf(out, "Version:       %d.%d\n", info.MajorVersion, info.MinorVersion)
		fmt.Fprintf(out, "Network:       %s\n", ngsniffer.NetworkName(info.Network))
		fmt.Fprintf(out, "Time unit:     %d\n", info.TimeUnit)
		fmt.Fprintf(out, "Start:         %s\n", info.Start.Format("2006-01-02"))
		fmt.Fprintf(out, "Compressed:    %s\n", yesify(info.Compressed))

		if info.Compressed {
			logical, file := sniffer.Offsets()
			fmt.Fprintf(
				out,
				"Data:          %s stored, %s expanded\n",
				humanize.Bytes(uint64(file-info.DataOffset)),
				humanize.Bytes(uint64(logical-info.DataOffset)),
			)
		}
	}

	fmt.Fprintf(out, "Records:       %s\n", humanize.Comma(int64(count)))
	fmt.Fprintf(out, "Captured:      %s (%s on the wire)\n", humanize.Bytes(captured), humanize.Bytes(wire))

	if count > 0 {
		fmt.Fprintf(out, "First:         %s\n", first.Format(time.RFC3339Nano))
		fmt.Fprintf(out, "Last:          %s\n", last.Format(time.RFC3339Nano))
		fmt.Fprintf(out, "Duration:      %v\n", last.Sub(first))
	}

	if len(encaps) > 1 || rd.Encapsulation() == capture.EncapPerPacket {
		keys := []capture.Encapsulation{}
		for encap := range encaps {
			keys = append(keys, encap)
		}

		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, encap := range keys {
			fmt.Fprintf(out, "  %-14s %d\n", encap.String()+":", encaps[encap])
		}
	}

	return nil
}

func handleDump(ctx *cli.Context) error {
	rd, _, err := openCapture(ctx, ctx.Args().First(), false)
	if err != nil {
		return err
	}

	defer rd.Close()

	out := ctx.App.Writer
	limit := ctx.Int("limit")
	for idx := 0; limit <= 0 || idx < limit; idx++ {
		rec, offset, err := rd.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		printRecord(out, idx, offset, rec)
		if ctx.Bool("decode") {
			printLayers(out, rec)
		}

		if ctx.Bool("hex") {
			fmt.Fprint(out, hex.Dump(rec.Data))
		}
	}

	return nil
}

func handleGet(ctx *cli.Context) error {
	offset, err := strconv.ParseInt(ctx.Args().Get(1), 10, 64)
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("bad offset: %v", err)}
	}

	rd, _, err := openCapture(ctx, ctx.Args().First(), true)
	if err != nil {
		return err
	}

	defer rd.Close()

	// Compressed captures can only be read at offsets that were streamed.
	for {
		_, next, err := rd.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if next >= offset {
			break
		}
	}

	rec, err := rd.SeekRead(offset)
	if err != nil {
		return err
	}

	log.Debugf("read record at %d", offset)
	printRecord(ctx.App.Writer, -1, offset, rec)
	if ctx.Bool("hex") {
		fmt.Fprint(ctx.App.Writer, hex.Dump(rec.Data))
	}

	return nil
}

func handleFormats(ctx *cli.Context) error {
	for _, format := range registry.Formats() {
		writable := format.Create != nil
		fmt.Fprintf(
			ctx.App.Writer,
			"%-12s %s (.%s) writable: %s\n",
			color.GreenString(format.Name),
			format.Description,
			strings.Join(format.Extensions, ", ."),
			yesify(writable),
		)
	}

	return nil
}
