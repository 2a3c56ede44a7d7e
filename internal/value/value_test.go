package value

import "testing"

func TestTruthy(t *testing.T) {
	if !MakeBool(true).Truthy() {
		t.Fatal("true should be truthy")
	}
	if MakeInt(0).Truthy() {
		t.Fatal("0 should not be truthy")
	}
	if !MakeInt(5).Truthy() {
		t.Fatal("5 should be truthy")
	}
}

func TestDeepCopyDisjoint(t *testing.T) {
	orig := MakeArray([]Value{MakeInt(1), MakeString("hi")})
	cp := DeepCopy(orig)
	if !orig.Equal(cp) {
		t.Fatalf("copy should be element-wise equal: %v vs %v", orig, cp)
	}
	// Mutate the copy's nested string and ensure the original is untouched.
	cp.Arr.Elements[1].Str.Append("!")
	if orig.Arr.Elements[1].Str.String() == cp.Arr.Elements[1].Str.String() {
		t.Fatal("deep copy should own disjoint memory")
	}
}

func TestArrayEqual(t *testing.T) {
	a := MakeArray([]Value{MakeInt(1), MakeFloat(1.0), MakeString("test")})
	b := MakeArray([]Value{MakeInt(1), MakeFloat(1.0), MakeString("test")})
	if !a.Equal(b) {
		t.Fatal("arrays with equal elements should be Equal")
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, v := range []Value{MakeInt(42), MakeInt(-7), MakeFloat(2.5)} {
		got, err := ParseLiteral(Format(v), HintNone)
		if err != nil {
			t.Fatalf("parse(%q): %v", Format(v), err)
		}
		if !got.Equal(v) {
			t.Fatalf("round trip of %q: got %v", Format(v), got)
		}
	}
	b, err := ParseLiteral(Format(MakeBool(true)), HintBool)
	if err != nil || !b.Equal(MakeBool(true)) {
		t.Fatalf("bool round trip: got %v err %v", b, err)
	}
	str, err := ParseLiteral(`"`+Format(MakeString("hi"))+`"`, HintNone)
	if err != nil || !str.Equal(MakeString("hi")) {
		t.Fatalf("string round trip: got %v err %v", str, err)
	}
}
