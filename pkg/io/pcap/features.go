package pcap

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	gio "github.com/hed1ad/goguardts/pkg/io"
)

var _ gio.FeatureExtractor = (*FeatureExtractor)(nil)

// Feature names a per-packet measurement.
type Feature string

// Supported packet features.
const (
	PacketSize       Feature = "packet_size"
	InterArrivalTime Feature = "inter_arrival_time"
	PayloadSize      Feature = "payload_size"
	IPTTL            Feature = "ip_ttl"
)

// Features lists every supported feature.
func Features() []Feature {
	return []Feature{PacketSize, InterArrivalTime, PayloadSize, IPTTL}
}

// FeatureExtractor converts packets to a single numeric feature.
// It is stateful: inter-arrival time depends on the previous packet.
type FeatureExtractor struct {
	feature       Feature
	lastTimestamp time.Time
}

// NewFeatureExtractor creates a packet feature extractor for feature.
func NewFeatureExtractor(feature Feature) (*FeatureExtractor, error) {
	for _, f := range Features() {
		if f == feature {
			return &FeatureExtractor{feature: feature}, nil
		}
	}
	return nil, fmt.Errorf("pcap: unknown feature %q", feature)
}

// Extract converts a gopacket.Packet to a one-element feature vector.
func (e *FeatureExtractor) Extract(data any) ([]float64, error) {
	packet, ok := data.(gopacket.Packet)
	if !ok {
		return nil, fmt.Errorf("pcap: expected gopacket.Packet, got %T", data)
	}
	return e.ExtractPacket(packet), nil
}

// ExtractPacket returns the selected feature of packet.
// Missing layers yield 0, so every packet produces a row.
func (e *FeatureExtractor) ExtractPacket(packet gopacket.Packet) []float64 {
	var value float64

	// Inter-arrival time is tracked for every packet regardless of feature
	var gap float64
	if metadata := packet.Metadata(); metadata != nil && !metadata.Timestamp.IsZero() {
		if !e.lastTimestamp.IsZero() {
			gap = metadata.Timestamp.Sub(e.lastTimestamp).Seconds()
		}
		e.lastTimestamp = metadata.Timestamp
	}

	switch e.feature {
	case PacketSize:
		value = float64(len(packet.Data()))
	case InterArrivalTime:
		value = gap
	case PayloadSize:
		if appLayer := packet.ApplicationLayer(); appLayer != nil {
			value = float64(len(appLayer.Payload()))
		}
	case IPTTL:
		if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
			value = float64(ipLayer.(*layers.IPv4).TTL)
		}
	}

	return []float64{value}
}

// FeatureNames returns the name of the extracted feature.
func (e *FeatureExtractor) FeatureNames() []string {
	return []string{string(e.feature)}
}
