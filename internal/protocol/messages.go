package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DeviceID identifies a remote device instance. The host encodes it on the
// wire in canonical hyphenated form.
type DeviceID = uuid.UUID

// ParseDeviceID parses the canonical hyphenated form.
func ParseDeviceID(s string) (DeviceID, error) {
	return uuid.Parse(s)
}

// Request and reply tags, matching the host's serde discriminators exactly.
const (
	TagList    = "List"
	TagMethods = "Methods"
	TagInvoke  = "Invoke"
	TagError   = "Error"
	TagResult  = "Result"
)

// wireMessage is the adjacently tagged envelope payload: the union tag under
// "type" and the variant data under "data".
type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DeviceDescriptor pairs a device with its capability-type names.
// Produced only by the host; typeNames is never empty in a valid reply.
type DeviceDescriptor struct {
	DeviceID  DeviceID `json:"deviceId"`
	TypeNames []string `json:"typeNames"`
}

// Parameter is one positional parameter's type tag. Order and count across a
// method descriptor define the invocation contract.
type Parameter struct {
	Type string `json:"type"`
}

// Method describes one invocable method on a device.
type Method struct {
	Name                   string      `json:"name"`
	Parameters             []Parameter `json:"parameters"`
	ReturnType             string      `json:"returnType"`
	Description            *string     `json:"description,omitempty"`
	ReturnValueDescription *string     `json:"returnValueDescription,omitempty"`
}

// Signature renders the method as "name(type, ...) -> returnType".
func (m *Method) Signature() string {
	sig := m.Name + "("
	for i, p := range m.Parameters {
		if i > 0 {
			sig += ", "
		}
		sig += p.Type
	}
	return sig + ") -> " + m.ReturnType
}

// Request is the client-to-host union. Use the constructor matching the tag;
// fields beyond the tag are meaningful only for the variants that carry them.
type Request struct {
	Type       string
	Device     DeviceID
	Method     string
	Parameters []Value
}

// ListRequest asks the host to enumerate every device on the bus.
func ListRequest() *Request {
	return &Request{Type: TagList}
}

// MethodsRequest asks the host for the method descriptors of one device.
func MethodsRequest(device DeviceID) *Request {
	return &Request{Type: TagMethods, Device: device}
}

// InvokeRequest calls method on device with positional arguments.
func InvokeRequest(device DeviceID, method string, params ...Value) *Request {
	if params == nil {
		params = []Value{}
	}
	return &Request{Type: TagInvoke, Device: device, Method: method, Parameters: params}
}

// invokePayload is the Invoke variant's data object.
type invokePayload struct {
	DeviceID   DeviceID `json:"deviceId"`
	Name       string   `json:"name"`
	Parameters []Value  `json:"parameters"`
}

func (r *Request) MarshalJSON() ([]byte, error) {
	msg := wireMessage{Type: r.Type}
	switch r.Type {
	case TagList:
		// No data.
	case TagMethods:
		data, err := json.Marshal(r.Device)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	case TagInvoke:
		params := r.Parameters
		if params == nil {
			params = []Value{}
		}
		data, err := json.Marshal(invokePayload{DeviceID: r.Device, Name: r.Method, Parameters: params})
		if err != nil {
			return nil, err
		}
		msg.Data = data
	default:
		return nil, fmt.Errorf("unknown request type: %q", r.Type)
	}
	return json.Marshal(msg)
}

func (r *Request) UnmarshalJSON(b []byte) error {
	var msg wireMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return err
	}
	*r = Request{Type: msg.Type}
	switch msg.Type {
	case TagList:
		return nil
	case TagMethods:
		return json.Unmarshal(msg.Data, &r.Device)
	case TagInvoke:
		var p invokePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return err
		}
		r.Device = p.DeviceID
		r.Method = p.Name
		r.Parameters = p.Parameters
		return nil
	default:
		return fmt.Errorf("unknown request type: %q", msg.Type)
	}
}

// Reply is the host-to-client union. Type selects which field is populated:
// Devices for List, Methods for Methods, Message for Error (nil when the
// host sent none), Values for Result (empty when absent).
type Reply struct {
	Type    string
	Devices []DeviceDescriptor
	Methods []Method
	Message *string
	Values  []string
}

func (r *Reply) MarshalJSON() ([]byte, error) {
	msg := wireMessage{Type: r.Type}
	var err error
	switch r.Type {
	case TagList:
		msg.Data, err = json.Marshal(r.Devices)
	case TagMethods:
		msg.Data, err = json.Marshal(r.Methods)
	case TagError:
		if r.Message != nil {
			msg.Data, err = json.Marshal(*r.Message)
		}
	case TagResult:
		values := r.Values
		if values == nil {
			values = []string{}
		}
		msg.Data, err = json.Marshal(values)
	default:
		return nil, fmt.Errorf("unknown reply type: %q", r.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func (r *Reply) UnmarshalJSON(b []byte) error {
	var msg wireMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return err
	}
	*r = Reply{Type: msg.Type}
	switch msg.Type {
	case TagList:
		return json.Unmarshal(msg.Data, &r.Devices)
	case TagMethods:
		return json.Unmarshal(msg.Data, &r.Methods)
	case TagError:
		// Data is an optional string: absent, null, or a message.
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return nil
		}
		return json.Unmarshal(msg.Data, &r.Message)
	case TagResult:
		r.Values = []string{}
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return nil
		}
		return json.Unmarshal(msg.Data, &r.Values)
	default:
		return fmt.Errorf("unknown reply type: %q", msg.Type)
	}
}
