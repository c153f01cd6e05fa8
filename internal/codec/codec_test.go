package codec

import "testing"

type payload struct {
	Name  string         `json:"name"`
	Tags  []string       `json:"tags"`
	Count map[string]int `json:"count"`
}

func TestRoundtrip_Isolation(t *testing.T) {
	in := payload{
		Name:  "a",
		Tags:  []string{"x", "y"},
		Count: map[string]int{"k": 1},
	}

	out, err := Roundtrip(JSONCodec{}, in)
	if err != nil {
		t.Fatal(err)
	}

	out.Tags[0] = "mutated"
	out.Count["k"] = 99

	if in.Tags[0] != "x" || in.Count["k"] != 1 {
		t.Error("roundtrip copy shares memory with original")
	}
}

func TestRoundtrip_Unmarshalable(t *testing.T) {
	_, err := Roundtrip(JSONCodec{}, func() {})
	if err == nil {
		t.Error("expected error for unmarshalable value")
	}
}
