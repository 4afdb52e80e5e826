package model

import "strings"

// Normalized roles shared by every backend.
const (
	RoleApplication = "Application"
	RoleWindow      = "Window"
	RoleDialog      = "Dialog"
	RolePane        = "Pane"
	RoleGroup       = "Group"
	RoleButton      = "Button"
	RoleSplitButton = "SplitButton"
	RoleEdit        = "Edit"
	RoleDocument    = "Document"
	RoleHyperlink   = "Hyperlink"
	RoleText        = "Text"
	RoleImage       = "Image"
	RoleMenuBar     = "MenuBar"
	RoleMenu        = "Menu"
	RoleMenuItem    = "MenuItem"
	RoleCheckBox    = "CheckBox"
	RoleRadioButton = "RadioButton"
	RoleComboBox    = "ComboBox"
	RoleList        = "List"
	RoleListItem    = "ListItem"
	RoleTree        = "Tree"
	RoleTreeItem    = "TreeItem"
	RoleTab         = "Tab"
	RoleTabItem     = "TabItem"
	RoleTable       = "Table"
	RoleRow         = "DataItem"
	RoleCell        = "Cell"
	RoleHeader      = "Header"
	RoleHeaderItem  = "HeaderItem"
	RoleScrollBar   = "ScrollBar"
	RoleSlider      = "Slider"
	RoleSpinner     = "Spinner"
	RoleProgressBar = "ProgressBar"
	RoleToolBar     = "ToolBar"
	RoleStatusBar   = "StatusBar"
	RoleTitleBar    = "TitleBar"
	RoleToolTip     = "ToolTip"
	RoleSeparator   = "Separator"
	RoleCustom      = "Custom"
)

// axRoles maps macOS AXRole values to normalized roles.
var axRoles = map[string]string{
	"AXApplication":         RoleApplication,
	"AXWindow":              RoleWindow,
	"AXSheet":               RoleDialog,
	"AXDrawer":              RolePane,
	"AXGroup":               RoleGroup,
	"AXSplitGroup":          RoleGroup,
	"AXScrollArea":          RolePane,
	"AXButton":              RoleButton,
	"AXPopUpButton":         RoleComboBox,
	"AXMenuButton":          RoleSplitButton,
	"AXTextField":           RoleEdit,
	"AXTextArea":            RoleEdit,
	"AXSearchField":         RoleEdit,
	"AXWebArea":             RoleDocument,
	"AXLink":                RoleHyperlink,
	"AXStaticText":          RoleText,
	"AXImage":               RoleImage,
	"AXMenuBar":             RoleMenuBar,
	"AXMenu":                RoleMenu,
	"AXMenuItem":            RoleMenuItem,
	"AXMenuBarItem":         RoleMenuItem,
	"AXCheckBox":            RoleCheckBox,
	"AXSwitch":              RoleCheckBox,
	"AXRadioButton":         RoleRadioButton,
	"AXComboBox":            RoleComboBox,
	"AXList":                RoleList,
	"AXOutline":             RoleTree,
	"AXTabGroup":            RoleTab,
	"AXTable":               RoleTable,
	"AXRow":                 RoleRow,
	"AXCell":                RoleCell,
	"AXScrollBar":           RoleScrollBar,
	"AXSlider":              RoleSlider,
	"AXIncrementor":         RoleSpinner,
	"AXProgressIndicator":   RoleProgressBar,
	"AXBusyIndicator":       RoleProgressBar,
	"AXToolbar":             RoleToolBar,
	"AXHelpTag":             RoleToolTip,
	"AXSplitter":            RoleSeparator,
	"AXValueIndicator":      RoleCustom,
	"AXDisclosureTriangle":  RoleButton,
	"AXColumn":              RoleHeaderItem,
	"AXLayoutArea":          RolePane,
	"AXUnknown":             RoleCustom,
	"AXSystemWide":          RolePane,
	"AXRelevanceIndicator":  RoleProgressBar,
	"AXLevelIndicator":      RoleProgressBar,
	"AXGrowArea":            RoleCustom,
	"AXRuler":               RoleCustom,
	"AXBrowser":             RoleTree,
	"AXHeading":             RoleText,
	"AXDateField":           RoleEdit,
	"AXColorWell":           RoleButton,
	"AXDockItem":            RoleButton,
	"AXMatte":               RolePane,
	"AXRadioGroup":          RoleGroup,
	"AXHandle":              RoleCustom,
	"AXTimeField":           RoleEdit,
	"AXLayoutItem":          RoleGroup,
	"AXListMarker":          RoleText,
	"AXPopover":             RoleDialog,
	"AXTextGroup":           RoleGroup,
	"AXTableOfContents":     RoleList,
	"AXDescriptionList":     RoleList,
	"AXOutlineRow":          RoleTreeItem,
	"AXSortButton":          RoleButton,
	"AXTab":                 RoleTabItem,
}

// atspiRoles maps AT-SPI role names (GetRoleName) to normalized roles.
var atspiRoles = map[string]string{
	"application":       RoleApplication,
	"frame":             RoleWindow,
	"window":            RoleWindow,
	"dialog":            RoleDialog,
	"alert":             RoleDialog,
	"file chooser":      RoleDialog,
	"panel":             RolePane,
	"filler":            RolePane,
	"scroll pane":       RolePane,
	"viewport":          RolePane,
	"split pane":        RolePane,
	"section":           RoleGroup,
	"grouping":          RoleGroup,
	"form":              RoleGroup,
	"push button":       RoleButton,
	"button":            RoleButton,
	"toggle button":     RoleButton,
	"text":              RoleEdit,
	"entry":             RoleEdit,
	"password text":     RoleEdit,
	"editbar":           RoleEdit,
	"document frame":    RoleDocument,
	"document web":      RoleDocument,
	"document text":     RoleDocument,
	"link":              RoleHyperlink,
	"label":             RoleText,
	"static":            RoleText,
	"heading":           RoleText,
	"paragraph":         RoleText,
	"icon":              RoleImage,
	"image":             RoleImage,
	"menu bar":          RoleMenuBar,
	"menu":              RoleMenu,
	"popup menu":        RoleMenu,
	"menu item":         RoleMenuItem,
	"check menu item":   RoleMenuItem,
	"radio menu item":   RoleMenuItem,
	"tearoff menu item": RoleMenuItem,
	"check box":         RoleCheckBox,
	"radio button":      RoleRadioButton,
	"combo box":         RoleComboBox,
	"list":              RoleList,
	"list box":          RoleList,
	"list item":         RoleListItem,
	"tree":              RoleTree,
	"tree table":        RoleTree,
	"tree item":         RoleTreeItem,
	"page tab list":     RoleTab,
	"page tab":          RoleTabItem,
	"table":             RoleTable,
	"table row":         RoleRow,
	"table cell":        RoleCell,
	"column header":     RoleHeaderItem,
	"row header":        RoleHeaderItem,
	"header":            RoleHeader,
	"scroll bar":        RoleScrollBar,
	"slider":            RoleSlider,
	"spin button":       RoleSpinner,
	"progress bar":      RoleProgressBar,
	"tool bar":          RoleToolBar,
	"status bar":        RoleStatusBar,
	"title bar":         RoleTitleBar,
	"tool tip":          RoleToolTip,
	"separator":         RoleSeparator,
	"unknown":           RoleCustom,
	"desktop frame":     RolePane,
}

// canonical maps lower-cased normalized role names to their canonical form,
// so "button" and "BUTTON" both normalize to "Button".
var canonical = func() map[string]string {
	m := map[string]string{}
	for _, table := range []map[string]string{axRoles, atspiRoles} {
		for _, role := range table {
			m[strings.ToLower(role)] = role
		}
	}
	// Aliases accepted in selectors.
	m["app"] = RoleApplication
	m["textfield"] = RoleEdit
	m["input"] = RoleEdit
	m["checkbox"] = RoleCheckBox
	m["menuitem"] = RoleMenuItem
	m["menubar"] = RoleMenuBar
	m["link"] = RoleHyperlink
	m["row"] = RoleRow
	return m
}()

// NormalizeRole converts a raw platform role to the normalized set. Roles
// with no mapping pass through verbatim.
func NormalizeRole(raw string) string {
	if r, ok := axRoles[raw]; ok {
		return r
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	if r, ok := canonical[lower]; ok && r == raw {
		return r
	}
	if r, ok := atspiRoles[lower]; ok {
		return r
	}
	if r, ok := canonical[lower]; ok {
		return r
	}
	return raw
}

// RoleMatches reports whether a selector role matches an element's
// normalized or raw role, case-insensitively.
func RoleMatches(want, role, rawRole string) bool {
	if want == "" {
		return true
	}
	if strings.EqualFold(want, role) || strings.EqualFold(want, rawRole) {
		return true
	}
	if r, ok := canonical[strings.ToLower(want)]; ok {
		return r == role
	}
	return strings.EqualFold(NormalizeRole(want), role)
}

// interactiveRoles are roles that accept user input.
var interactiveRoles = map[string]bool{
	RoleButton:      true,
	RoleSplitButton: true,
	RoleEdit:        true,
	RoleDocument:    true,
	RoleHyperlink:   true,
	RoleMenuItem:    true,
	RoleCheckBox:    true,
	RoleRadioButton: true,
	RoleComboBox:    true,
	RoleListItem:    true,
	RoleTreeItem:    true,
	RoleTabItem:     true,
	RoleSlider:      true,
	RoleSpinner:     true,
	RoleScrollBar:   true,
}

// IsInteractive reports whether a normalized role accepts user input.
func IsInteractive(role string) bool {
	return interactiveRoles[role]
}

// IsContainer reports whether a role groups content without accepting input.
func IsContainer(role string) bool {
	switch role {
	case RoleGroup, RolePane, RoleCustom:
		return true
	}
	return false
}
