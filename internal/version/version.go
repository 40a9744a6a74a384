package version

// Current is the released version of todobot, without a "v" prefix.
const Current = "0.3.0"
