// Package pcap turns packet captures into univariate time series.
package pcap

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	gio "github.com/hed1ad/goguardts/pkg/io"
)

var _ gio.Reader = (*Reader)(nil)

// Reader reads packets from PCAP files or live interfaces and emits one
// single-feature row per packet.
type Reader struct {
	handle    *pcap.Handle
	extractor *FeatureExtractor
	isLive    bool
}

// NewFileReader creates a reader for PCAP files.
func NewFileReader(filename string, feature Feature) (*Reader, error) {
	extractor, err := NewFeatureExtractor(feature)
	if err != nil {
		return nil, err
	}

	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, err
	}

	return &Reader{
		handle:    handle,
		extractor: extractor,
		isLive:    false,
	}, nil
}

// NewLiveReader creates a reader for live packet capture.
func NewLiveReader(iface string, snaplen int32, promisc bool, timeout time.Duration, feature Feature) (*Reader, error) {
	extractor, err := NewFeatureExtractor(feature)
	if err != nil {
		return nil, err
	}

	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, err
	}

	return &Reader{
		handle:    handle,
		extractor: extractor,
		isLive:    true,
	}, nil
}

// Read returns every packet of an offline capture as a row.
func (r *Reader) Read() ([][]float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}
	if r.isLive {
		return nil, errors.New("pcap: Read is not supported on live captures, use Stream")
	}

	var data [][]float64
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	for packet := range packetSource.Packets() {
		data = append(data, r.extractor.ExtractPacket(packet))
	}

	if len(data) == 0 {
		return nil, errors.New("pcap: capture contains no packets")
	}

	return data, nil
}

// Stream returns a channel of rows for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	out := make(chan []float64, 1000)
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-packetSource.Packets():
				if !ok {
					return
				}
				select {
				case out <- r.extractor.ExtractPacket(packet):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	return nil
}
