package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sahib/config"
	"github.com/sahib/sniffcap/capture"
	"github.com/sahib/sniffcap/ngsniffer"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// fitPcap cuts the record to `snaplen` and makes
// the lengths agree the way pcap wants them.
func fitPcap(rec *capture.Record, snaplen int) (ci gopacket.CaptureInfo, data []byte) {
	ci, data = rec.CaptureInfo, rec.Data
	if len(data) > snaplen {
		data = data[:snaplen]
		ci.CaptureLength = snaplen
	}

	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}

	return ci, data
}

// pcapWriter writes classic pcap. The link type is taken
// from the first record; pcap has only one per file.
type pcapWriter struct {
	w        *pcapgo.Writer
	snaplen  int
	linkType layers.LinkType
	started  bool
}

func (pw *pcapWriter) start(linkType layers.LinkType) error {
	if err := pw.w.WriteFileHeader(uint32(pw.snaplen), linkType); err != nil {
		return err
	}

	pw.linkType = linkType
	pw.started = true
	return nil
}

func (pw *pcapWriter) Write(rec *capture.Record) error {
	linkType, ok := rec.Encap.LinkType()
	if !ok {
		return capture.Unsupported("pcap has no link type for %s", rec.Encap)
	}

	if !pw.started {
		if err := pw.start(linkType); err != nil {
			return err
		}
	}

	if linkType != pw.linkType {
		return capture.Unsupported("cannot mix %s into a %s pcap", rec.Encap, pw.linkType)
	}

	ci, data := fitPcap(rec, pw.snaplen)
	return pw.w.WritePacket(ci, data)
}

func (pw *pcapWriter) Close() error {
	if !pw.started {
		return pw.start(layers.LinkTypeEthernet)
	}

	return nil
}

// pcapngWriter adds one interface per link type it sees.
type pcapngWriter struct {
	out        io.Writer
	w          *pcapgo.NgWriter
	snaplen    int
	interfaces map[layers.LinkType]int
}

func (nw *pcapngWriter) iface(linkType layers.LinkType) (int, error) {
	if id, ok := nw.interfaces[linkType]; ok {
		return id, nil
	}

	if nw.w == nil {
		w, err := pcapgo.NewNgWriter(nw.out, linkType)
		if err != nil {
			return 0, err
		}

		nw.w = w
		nw.interfaces[linkType] = 0
		return 0, nil
	}

	id, err := nw.w.AddInterface(pcapgo.NgInterface{
		Name:       linkType.String(),
		LinkType:   linkType,
		SnapLength: uint32(nw.snaplen),
	})

	if err != nil {
		return 0, err
	}

	nw.interfaces[linkType] = id
	return id, nil
}

func (nw *pcapngWriter) Write(rec *capture.Record) error {
	linkType, ok := rec.Encap.LinkType()
	if !ok {
		return capture.Unsupported("pcapng has no link type for %s", rec.Encap)
	}

	id, err := nw.iface(linkType)
	if err != nil {
		return err
	}

	ci, data := fitPcap(rec, nw.snaplen)
	ci.InterfaceIndex = id
	return nw.w.WritePacket(ci, data)
}

func (nw *pcapngWriter) Close() error {
	if nw.w == nil {
		if _, err := nw.iface(layers.LinkTypeEthernet); err != nil {
			return err
		}
	}

	return nw.w.Flush()
}

func newOutputWriter(name string, out io.Writer, encap capture.Encapsulation, cfg *config.Config) (capture.Writer, error) {
	snaplen := int(cfg.Int("convert.snaplen"))

	switch name {
	case "pcap":
		return &pcapWriter{w: pcapgo.NewWriter(out), snaplen: snaplen}, nil
	case "pcapng":
		return &pcapngWriter{out: out, snaplen: snaplen, interfaces: map[layers.LinkType]int{}}, nil
	}

	format, ok := registry.Lookup(name)
	if !ok || format.Create == nil {
		return nil, ExitCode{BadArgs, fmt.Sprintf("cannot write format %q", name)}
	}

	return format.Create(out, encap, cfg)
}

func handleConvert(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	if ctx.Bool("compress") {
		if err := cfg.SetBool("writer.compress", true); err != nil {
			return err
		}
	}

	rd, _, err := openCapture(ctx, ctx.Args().First(), false)
	if err != nil {
		return err
	}

	defer rd.Close()

	format := ctx.String("format")
	if format == ngsniffer.Format.Name && !ngsniffer.CanWrite(rd.Encapsulation()) {
		return capture.Unsupported("cannot write %s captures as %s", rd.Encapsulation(), format)
	}

	outPath := ctx.Args().Get(1)
	fd, err := os.Create(outPath)
	if err != nil {
		return err
	}

	defer fd.Close()

	wr, err := newOutputWriter(format, fd, rd.Encapsulation(), cfg)
	if err != nil {
		return err
	}

	written, skipped := 0, 0
	for {
		rec, offset, err := rd.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if err := wr.Write(rec); err != nil {
			if !capture.IsUnsupported(err) {
				return err
			}

			log.WithField("offset", offset).Warningf("skipping record: %v", err)
			skipped++
			continue
		}

		written++
	}

	if err := wr.Close(); err != nil {
		return err
	}

	size := int64(0)
	if stat, err := fd.Stat(); err == nil {
		size = stat.Size()
	}

	fmt.Fprintf(
		ctx.App.Writer,
		"wrote %d records to %s (%s), skipped %d\n",
		written, outPath, humanize.Bytes(uint64(size)), skipped,
	)

	return nil
}
