package platform

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// ChannelPermissions computes the permission bits member has in channel,
// following the platform's overwrite order: @everyone, roles, then the member.
func ChannelPermissions(guild *discordgo.Guild, channel *discordgo.Channel, member *discordgo.Member) int64 {
	if member == nil || member.User == nil {
		return 0
	}
	if guild.OwnerID == member.User.ID {
		return discordgo.PermissionAll
	}

	var perms int64
	for _, role := range guild.Roles {
		if role.ID == guild.ID || slices.Contains(member.Roles, role.ID) {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}

	for _, o := range channel.PermissionOverwrites {
		if o.Type == discordgo.PermissionOverwriteTypeRole && o.ID == guild.ID {
			perms &^= o.Deny
			perms |= o.Allow
			break
		}
	}

	var allow, deny int64
	for _, o := range channel.PermissionOverwrites {
		if o.Type == discordgo.PermissionOverwriteTypeRole && slices.Contains(member.Roles, o.ID) {
			deny |= o.Deny
			allow |= o.Allow
		}
	}
	perms &^= deny
	perms |= allow

	for _, o := range channel.PermissionOverwrites {
		if o.Type == discordgo.PermissionOverwriteTypeMember && o.ID == member.User.ID {
			perms &^= o.Deny
			perms |= o.Allow
			break
		}
	}

	return perms
}

// CanView reports whether member can see channel.
func CanView(guild *discordgo.Guild, channel *discordgo.Channel, member *discordgo.Member) bool {
	return ChannelPermissions(guild, channel, member)&discordgo.PermissionViewChannel != 0
}
