package logic

// ParseSerial maps a raw serial byte to a command.
// Unknown bytes and -1 (nothing received) are not commands.
func ParseSerial(b int) (Command, bool) {
	switch b {
	case 'n', 'N', '1':
		return CmdAmpOn, true
	case 'f', 'F', '0':
		return CmdAmpOff, true
	case 'd', 'D':
		return CmdAmpOffDelay, true
	case 'm', 'M':
		return CmdMute, true
	case '+':
		return CmdVolumeUp, true
	case '-':
		return CmdVolumeDown, true
	}
	return "", false
}

// remoteCommand maps a command code from our remote to a command.
func (c Config) remoteCommand(code uint8) (Command, bool) {
	switch code {
	case c.RemoteVolumeUp:
		return CmdVolumeUp, true
	case c.RemoteVolumeDown:
		return CmdVolumeDown, true
	case c.RemoteMute:
		return CmdMute, true
	}
	return "", false
}

// necCode returns the NEC command byte for a volume/mute command.
func (c Config) necCode(cmd Command) (byte, bool) {
	switch cmd {
	case CmdVolumeUp:
		return c.NECVolumeUp, true
	case CmdVolumeDown:
		return c.NECVolumeDown, true
	case CmdMute:
		return c.NECMute, true
	}
	return 0, false
}
