package version

// Version is the library version reported in the default User-Agent.
const Version = "v0.3.0"
