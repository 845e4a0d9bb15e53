//go:build linux

package transport

import (
	"os"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	300:    unix.B300,
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// openSerial opens the device without waiting for carrier and puts it into
// raw 8N1 mode. Unknown baud rates leave the line speed as configured.
func openSerial(path string, baud int) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	raw, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}
	var cfgErr error
	if err := raw.Control(func(fd uintptr) {
		cfgErr = configureSerial(int(fd), baud)
	}); err != nil {
		f.Close()
		return nil, err
	}
	if cfgErr != nil {
		f.Close()
		return nil, cfgErr
	}
	return f, nil
}

// configureSerial is cfmakeraw(3) plus CLOCAL/CREAD and the line speed.
func configureSerial(fd int, baud int) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	if speed, ok := baudRates[baud]; ok {
		termios.Cflag &^= unix.CBAUD
		termios.Cflag |= speed
		termios.Ispeed = speed
		termios.Ospeed = speed
	}
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, termios)
}
