package symbol

import "strings"

// Exported returns the exported Lisp symbol name for a message:
// "PoseStamped" becomes "<POSESTAMPED>".
func Exported(messageName string) string {
	return "<" + strings.ToUpper(messageName) + ">"
}

// FragmentFile returns the file name of a message's package-registration
// fragment, e.g. "_package_PoseStamped.lisp".
func FragmentFile(messageName string) string {
	return "_package_" + messageName + ".lisp"
}
