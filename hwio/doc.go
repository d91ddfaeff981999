// Package hwio adapts Linux serial ports and GPIO lines to the hal
// capabilities used by the sdi12 driver.
//
// A [SerialPort] opens a tty device with github.com/tarm/serial each time the
// driver configures it and closes it when the driver releases it. The wake
// break is produced by a [BreakLine] on the same device, which holds the tty
// in break with the TIOCSBRK and TIOCCBRK ioctls. The UART never gives up its
// TX pin, so no GPIO is wired to the data line.
//
// Wiring:
//
//	UART TX ──► line driver input      (SoC UART or USB serial adapter)
//	UART RX ◄── line receiver output
//	GPIO    ──► driver/receiver enables (optional, see sdi12.DirectionController)
//
// GPIO lines for direction control are looked up through periph.io; call
// [Init] once before [OpenPin].
package hwio
