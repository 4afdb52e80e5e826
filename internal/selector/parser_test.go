package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Atoms(t *testing.T) {
	tests := []struct {
		input string
		want  Selector
	}{
		{"role:Button", RoleOnly("Button")},
		{"ROLE:Button", RoleOnly("Button")},
		{"role:Document|name:Text editor", RoleNamed("Document", "Text editor")},
		{"role:Button|contains:Save", RoleNamed("Button", "Save")},
		{"Button|OK", RoleNamed("Button", "OK")},
		{"name:Best Plan Pro", Name("Best Plan Pro")},
		{"Name:Submit", Name("Submit")},
		{"text:I have arrived!", Text("I have arrived!")},
		{"id:42", ID("42")},
		{"#42", ID("42")},
		{"nativeid: dob ", NativeID("dob")},
		{"classname:Chrome_WidgetWin_1", ClassName("Chrome_WidgetWin_1")},
		{"visible:true", Visible(true)},
		{"visible:FALSE", Visible(false)},
		{"nth=-1", Nth(-1)},
		{"nth:2", Nth(2)},
		{"..", Parent{}},
		{"attr:aria-checked=true", Attr("aria-checked", "true")},
		{"attr:required", Attr("required", "true")},
		{"placeholder=Search", Attr("placeholder", "Search")},
		{"button", RoleOnly("button")},
		{"TextField", RoleOnly("textfield")},
		{"AXButton", RoleOnly("AXButton")},
		{"menuitem:Open", RoleNamed("menuitem", "Open")},
		{"name:Save (Ctrl+S)", Name("Save (Ctrl+S)")},
		{`name:a\|b`, Name("a|b")},
		{"name:a|b", Name("a|b")},
		{`name:x \&\& y`, Name("x && y")},
		{"has(role:Button)", Has{Inner: RoleOnly("Button")}},
		{"has:name:OK", Has{Inner: Name("OK")}},
		{"not(role:Button)", Not{Inner: RoleOnly("Button")}},
		{"rightof(name:Email)", RightOf{Anchor: Name("Email")}},
		{"below:name:Email", Below{Anchor: Name("Email")}},
		{"near(id:7)", Near{Anchor: ID("7")}},
		{"/Window[3]/Pane/Button[5]", Path{
			Raw:   "/Window[3]/Pane/Button[5]",
			Steps: []PathStep{{Role: "Window", Index: 3}, {Role: "Pane"}, {Role: "Button", Index: 5}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_Combinators(t *testing.T) {
	tests := []struct {
		input string
		want  Selector
	}{
		{
			"role:Document && name:Text editor",
			And{RoleOnly("Document"), Name("Text editor")},
		},
		{
			"role:Window && name:Best Plan Pro",
			And{RoleOnly("Window"), Name("Best Plan Pro")},
		},
		{
			"role:Window >> nativeid:dob",
			Chain{RoleOnly("Window"), NativeID("dob")},
		},
		{
			"(role:Window && name:Best Plan Pro) >> nativeid:dob",
			Chain{And{RoleOnly("Window"), Name("Best Plan Pro")}, NativeID("dob")},
		},
		{
			"role:Button || role:Hyperlink || name:Go",
			Or{RoleOnly("Button"), RoleOnly("Hyperlink"), Name("Go")},
		},
		{
			"role:A && role:B || role:C",
			Or{And{RoleOnly("A"), RoleOnly("B")}, RoleOnly("C")},
		},
		{
			"role:A && (role:B || role:C)",
			And{RoleOnly("A"), Or{RoleOnly("B"), RoleOnly("C")}},
		},
		{
			"role:Button && !name:Cancel",
			And{RoleOnly("Button"), Not{Inner: Name("Cancel")}},
		},
		{
			"!(role:A || role:B)",
			Not{Inner: Or{RoleOnly("A"), RoleOnly("B")}},
		},
		{
			"role:List >> role:ListItem >> nth=-1",
			Chain{RoleOnly("List"), RoleOnly("ListItem"), Nth(-1)},
		},
		{
			"(role:A >> role:B) >> role:C",
			Chain{RoleOnly("A"), RoleOnly("B"), RoleOnly("C")},
		},
		{
			"role:A >> (role:B >> role:C)",
			Chain{RoleOnly("A"), RoleOnly("B"), RoleOnly("C")},
		},
		{
			"((role:A && role:B) && role:C)",
			And{RoleOnly("A"), RoleOnly("B"), RoleOnly("C")},
		},
		{
			"role:Dialog && has(role:Button && name:OK)",
			And{RoleOnly("Dialog"), Has{Inner: And{RoleOnly("Button"), Name("OK")}}},
		},
		{
			"name:Save >> ..",
			Chain{Name("Save"), Parent{}},
		},
		{
			"name:Hello, world",
			Name("Hello, world"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"nth=invalid",
		"nth=",
		"visible:maybe",
		"role:",
		"name:",
		"#",
		"justsomething",
		"role:A &&",
		"&& role:A",
		"(role:A",
		"role:A)",
		"()",
		"has(role:A",
		"has(nth=x)",
		"role:A >> (name:B || nth=zz)",
		"/Window[0]",
		"/Window//Button",
		"/Window[x]",
		"Button|",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			sel := Parse(in)
			inv, ok := sel.(Invalid)
			require.True(t, ok, "expected Invalid, got %#v", sel)
			assert.NotEmpty(t, inv.Reason)
		})
	}
}

func TestParse_PipeFormEquivalentToAnd(t *testing.T) {
	pipe := Parse("role:Document|name:Text editor").(Role)
	and := Parse("role:Document && name:Text editor").(And)

	require.Len(t, and, 2)
	assert.Equal(t, and[0].(Role).Role, pipe.Role)
	require.NotNil(t, pipe.Name)
	assert.Equal(t, string(and[1].(Name)), *pipe.Name)
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, RoleOnly("Button"), MustParse("role:Button"))
	assert.Panics(t, func() { MustParse("nth=invalid") })
}

func TestString(t *testing.T) {
	tests := []struct {
		sel  Selector
		want string
	}{
		{RoleOnly("Button"), "role:Button"},
		{RoleNamed("Text", "I have arrived!"), `role:Text|name:I have arrived\!`},
		{Chain{And{RoleOnly("Window"), Name("Best Plan Pro")}, NativeID("dob")}, "role:Window && name:Best Plan Pro >> nativeid:dob"},
		{And{RoleOnly("A"), Or{Name("x"), Name("y")}}, "role:A && (name:x || name:y)"},
		{Not{Inner: And{RoleOnly("A"), Visible(true)}}, "!(role:A && visible:true)"},
		{Has{Inner: Name("OK")}, "has(name:OK)"},
		{Nth(-1), "nth=-1"},
		{Attributes{"b": "2", "a": "1"}, "(attr:a=1 && attr:b=2)"},
		{Parent{}, ".."},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.String())
		})
	}
}

func TestIsPredicate(t *testing.T) {
	assert.True(t, IsPredicate(And{RoleOnly("A"), Not{Inner: Name("b")}, Has{Inner: Nth(0)}}))
	assert.False(t, IsPredicate(Chain{RoleOnly("A"), Name("b")}))
	assert.False(t, IsPredicate(Or{RoleOnly("A"), Nth(1)}))
	assert.False(t, IsPredicate(Path{Raw: "/Window"}))
}
