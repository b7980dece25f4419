// Package msgs defines the messages published by the knob besides the
// plain text volume and mute topics.
package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/volknob/pkg/framework"
)

// DeviceStatus is published retained on the status topic whenever it
// changes. An empty payload on the topic means the knob is offline.
type DeviceStatus struct {
	DeviceID  string `protobuf:"bytes,1,opt,name=device_id,proto3" json:"device_id,omitempty"`
	Level     int32  `protobuf:"varint,2,opt,name=level,proto3" json:"level"`
	Muted     bool   `protobuf:"varint,3,opt,name=muted,proto3" json:"muted,omitempty"`
	Address   string `protobuf:"bytes,4,opt,name=address,proto3" json:"address,omitempty"`
	PeerLevel int32  `protobuf:"varint,5,opt,name=peer_level,proto3" json:"peer_level,omitempty"`
	PeerKnown bool   `protobuf:"varint,6,opt,name=peer_known,proto3" json:"peer_known,omitempty"`
}

// NewMessage implements Message.
func (m *DeviceStatus) NewMessage() fx.Message { return &DeviceStatus{} }

// ProtoMessage implements proto.Message.
func (m *DeviceStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceStatus) Reset() { *m = DeviceStatus{} }

// String implements proto.Message.
func (m *DeviceStatus) String() string { return proto.CompactTextString(m) }

// Encode marshals the status.
func (m *DeviceStatus) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeDeviceStatus unmarshals a status payload. It returns nil
// without error for an empty payload.
func DecodeDeviceStatus(data []byte) (*DeviceStatus, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m DeviceStatus
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
